package services

// Service is the interface every agent service implements. Start and Stop
// are idempotent in the sense that calling them in the wrong state returns
// an error without side effects.
type Service interface {
	Start() error
	Stop() error
}
