package services

import "github.com/deploymenttheory/go-carve/internal/interfaces"

// CarveRunner drives one full carving pass over a device. Run returns
// true when the scan completed and false when it was cancelled or the
// device could not be opened.
type CarveRunner interface {
	Run(log interfaces.LogFunc, progress interfaces.ProgressFunc, cancel interfaces.CancelFunc) bool
	Session() *CarveSession
}

var _ CarveRunner = (*CarveEngine)(nil)
