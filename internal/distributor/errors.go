package distributor

import "fmt"

// FailureKind classifies a delivery failure for throttled admin warnings.
type FailureKind string

const (
	FailureChannelMissing    FailureKind = "channelMissing"
	FailurePermissionMissing FailureKind = "permissionMissing"
	FailureTransient         FailureKind = "transient"
)

// DeliveryError wraps a transport failure with its classification. The
// Permission field is set only for FailurePermissionMissing.
type DeliveryError struct {
	Kind       FailureKind
	Permission string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("delivery failed (%s, %s): %v", e.Kind, e.Permission, e.Err)
	}
	return fmt.Sprintf("delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
