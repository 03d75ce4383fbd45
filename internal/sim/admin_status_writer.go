package sim

// AdminStatusWriter allows writers to receive admin HTTP status updates.
type AdminStatusWriter interface {
	SetAdminStatus(addr string, listening bool)
}
