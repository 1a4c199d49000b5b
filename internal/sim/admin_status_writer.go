package sim

// AdminStatusWriter is notified when the admin server starts or stops listening.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
