package fskit

// Callback is the function shape attached to a declared route for
// each RouteKind (spec.md §4.4). Each receives the Core, the
// RouteMetadata describing the match, the inode the dispatcher has
// already locked according to the route's consistency discipline (the
// Create/Mkdir/Mknod callbacks take no inode, since the new inode does
// not exist yet), and the inode's current app data.
//
// Route declaration (Declare*) is typed per kind so a caller cannot
// hand RouteCreate a callback shaped for RouteWrite; routeTable.declare
// itself stores callbacks as interface{} and relies on each façade
// (and runDetachRoute/runDestroyRoute) to type-assert back to the
// right shape.
type (
	CreateCallback  func(core *Core, meta RouteMetadata, appData interface{}) (*Inode, Status)
	MknodCallback   func(core *Core, meta RouteMetadata, mode uint32, dev uint32, appData interface{}) (*Inode, Status)
	MkdirCallback   func(core *Core, meta RouteMetadata, mode uint32, appData interface{}) (*Inode, Status)
	OpenCallback    func(core *Core, meta RouteMetadata, ino *Inode, flags int, appData interface{}) (interface{}, Status)
	CloseCallback   func(core *Core, meta RouteMetadata, ino *Inode, handleData interface{}) Status
	ReaddirCallback func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	ReadCallback    func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, offset int64, appData interface{}) (int, Status)
	WriteCallback   func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, offset int64, appData interface{}) (int, Status)
	TruncCallback   func(core *Core, meta RouteMetadata, ino *Inode, size int64, appData interface{}) Status
	DetachCallback  func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	DestroyCallback func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	StatCallback    func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	SyncCallback    func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	RenameCallback  func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
	LinkCallback    func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status

	GetXattrCallback    func(core *Core, meta RouteMetadata, ino *Inode, buf []byte, appData interface{}) (int, Status)
	SetXattrCallback    func(core *Core, meta RouteMetadata, ino *Inode, value []byte, mode XattrMode, appData interface{}) Status
	ListXattrCallback   func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) ([]string, Status)
	RemoveXattrCallback func(core *Core, meta RouteMetadata, ino *Inode, appData interface{}) Status
)

// Typed Declare* wrappers validate the callback shape at the call
// site instead of leaving a bad cast to surface at match time
// (spec.md §4.4 "Declaration and removal").

func DeclareCreate(rt *routeTable, regexSrc string, c Consistency, cb CreateCallback) (RouteHandle, Status) {
	return rt.declare(RouteCreate, regexSrc, c, cb)
}

func DeclareMknod(rt *routeTable, regexSrc string, c Consistency, cb MknodCallback) (RouteHandle, Status) {
	return rt.declare(RouteMknod, regexSrc, c, cb)
}

func DeclareMkdir(rt *routeTable, regexSrc string, c Consistency, cb MkdirCallback) (RouteHandle, Status) {
	return rt.declare(RouteMkdir, regexSrc, c, cb)
}

func DeclareOpen(rt *routeTable, regexSrc string, c Consistency, cb OpenCallback) (RouteHandle, Status) {
	return rt.declare(RouteOpen, regexSrc, c, cb)
}

func DeclareClose(rt *routeTable, regexSrc string, c Consistency, cb CloseCallback) (RouteHandle, Status) {
	return rt.declare(RouteClose, regexSrc, c, cb)
}

func DeclareReaddir(rt *routeTable, regexSrc string, c Consistency, cb ReaddirCallback) (RouteHandle, Status) {
	return rt.declare(RouteReaddir, regexSrc, c, cb)
}

func DeclareRead(rt *routeTable, regexSrc string, c Consistency, cb ReadCallback) (RouteHandle, Status) {
	return rt.declare(RouteRead, regexSrc, c, cb)
}

func DeclareWrite(rt *routeTable, regexSrc string, c Consistency, cb WriteCallback) (RouteHandle, Status) {
	return rt.declare(RouteWrite, regexSrc, c, cb)
}

func DeclareTrunc(rt *routeTable, regexSrc string, c Consistency, cb TruncCallback) (RouteHandle, Status) {
	return rt.declare(RouteTrunc, regexSrc, c, cb)
}

func DeclareDetach(rt *routeTable, regexSrc string, c Consistency, cb DetachCallback) (RouteHandle, Status) {
	return rt.declare(RouteDetach, regexSrc, c, cb)
}

func DeclareDestroy(rt *routeTable, regexSrc string, c Consistency, cb DestroyCallback) (RouteHandle, Status) {
	return rt.declare(RouteDestroy, regexSrc, c, cb)
}

func DeclareStat(rt *routeTable, regexSrc string, c Consistency, cb StatCallback) (RouteHandle, Status) {
	return rt.declare(RouteStat, regexSrc, c, cb)
}

func DeclareSync(rt *routeTable, regexSrc string, c Consistency, cb SyncCallback) (RouteHandle, Status) {
	return rt.declare(RouteSync, regexSrc, c, cb)
}

func DeclareRename(rt *routeTable, regexSrc string, c Consistency, cb RenameCallback) (RouteHandle, Status) {
	return rt.declare(RouteRename, regexSrc, c, cb)
}

func DeclareLink(rt *routeTable, regexSrc string, c Consistency, cb LinkCallback) (RouteHandle, Status) {
	return rt.declare(RouteLink, regexSrc, c, cb)
}

func DeclareGetXattr(rt *routeTable, regexSrc string, c Consistency, cb GetXattrCallback) (RouteHandle, Status) {
	return rt.declare(RouteGetXattr, regexSrc, c, cb)
}

func DeclareSetXattr(rt *routeTable, regexSrc string, c Consistency, cb SetXattrCallback) (RouteHandle, Status) {
	return rt.declare(RouteSetXattr, regexSrc, c, cb)
}

func DeclareListXattr(rt *routeTable, regexSrc string, c Consistency, cb ListXattrCallback) (RouteHandle, Status) {
	return rt.declare(RouteListXattr, regexSrc, c, cb)
}

func DeclareRemoveXattr(rt *routeTable, regexSrc string, c Consistency, cb RemoveXattrCallback) (RouteHandle, Status) {
	return rt.declare(RouteRemoveXattr, regexSrc, c, cb)
}

// Routes returns core's route table, the handle DeclareXxx and
// RemoveRoute operate on (spec.md §6 "route-table accessor").
func (c *Core) Routes() *routeTable { return c.routes }

// RemoveRoute un-declares a previously declared route.
func RemoveRoute(rt *routeTable, kind RouteKind, h RouteHandle) Status {
	return rt.remove(kind, h)
}

// UnrouteAll clears every route of every kind.
func UnrouteAll(rt *routeTable) {
	rt.unrouteAll()
}
