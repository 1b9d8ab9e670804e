package registry

// Service is the lifecycle contract for every agent component: the tracker,
// the heartbeat beacon, the presence view and the web surface all start and
// stop through it.
type Service interface {
	Start() error
	Stop() error
}
