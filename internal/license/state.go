package license

// State is the gate's verdict on the current deployment. The zero
// value is Unverifiable so an unset status never grants access.
type State int

const (
	// StateUnverifiable means the check could not complete (network
	// or service failure). Treated as failing by the gate.
	StateUnverifiable State = iota
	// StateInvalid means the key was checked and rejected.
	StateInvalid
	// StateValid means the deployment is entitled to serve requests.
	StateValid
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	default:
		return "unverifiable"
	}
}

// Reason is a machine-readable cause attached to every Status. It is
// logged server-side only, never surfaced to the client.
type Reason string

const (
	ReasonOK          Reason = "ok"
	ReasonMissingKey  Reason = "missing_key"
	ReasonBadFormat   Reason = "bad_format"
	ReasonKeyMismatch Reason = "key_mismatch"
	ReasonRevoked     Reason = "revoked"
	ReasonRemoteError Reason = "remote_error"
)

// Status is the outcome of a single license check.
type Status struct {
	State  State
	Reason Reason
}

// Passes reports whether the status grants access. Only an explicit
// Valid passes; Invalid and Unverifiable both block.
func (s Status) Passes() bool {
	return s.State == StateValid
}

// Valid returns a passing status.
func Valid() Status {
	return Status{State: StateValid, Reason: ReasonOK}
}

// Invalid returns a rejected status with the given reason.
func Invalid(reason Reason) Status {
	return Status{State: StateInvalid, Reason: reason}
}

// Unverifiable returns a could-not-check status with the given reason.
func Unverifiable(reason Reason) Status {
	return Status{State: StateUnverifiable, Reason: reason}
}
