package approval

// Decision is an approval-policy verdict for one pending request.
type Decision int

const (
	// DecisionIgnore leaves the request pending; it will eventually expire.
	DecisionIgnore Decision = iota

	// DecisionApprove resolves the request as approved.
	DecisionApprove

	// DecisionReject resolves the request as rejected.
	DecisionReject
)

// Policy decides the fate of pending approval requests. The gate itself
// never decides; policies are injected by the caller.
type Policy interface {
	// Name identifies the policy as the resolver of record.
	Name() string

	// Decide returns a verdict for one pending request.
	Decide(req Request) Decision
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc struct {
	PolicyName string
	Fn         func(req Request) Decision
}

func (p PolicyFunc) Name() string                { return p.PolicyName }
func (p PolicyFunc) Decide(req Request) Decision { return p.Fn(req) }

// AutoApprover approves every request immediately. This matches the
// reference behavior for unattended batch runs.
type AutoApprover struct{}

func (AutoApprover) Name() string            { return "auto" }
func (AutoApprover) Decide(Request) Decision { return DecisionApprove }

// DenyAll rejects every request. Useful for dry runs: the orchestrator
// walks every entity without performing a single side effect.
type DenyAll struct{}

func (DenyAll) Name() string            { return "deny-all" }
func (DenyAll) Decide(Request) Decision { return DecisionReject }

// PolicyFromName maps a configuration string to a policy.
// Unknown names fall back to AutoApprover.
func PolicyFromName(name string) Policy {
	switch name {
	case "deny":
		return DenyAll{}
	default:
		return AutoApprover{}
	}
}
