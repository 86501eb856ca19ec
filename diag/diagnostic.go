// Package diag implements structured diagnostics keyed to stable
// identities (spec.md §4.13) and the event-driven DiagnosticHub that
// owns their lifecycle across compiles and frames.
package diag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Severity classifies a Diagnostic's urgency.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "severity?"
	}
}

// Domain groups diagnostics by the subsystem that raised them.
type Domain string

const (
	DomainStructural Domain = "structural"
	DomainTyping     Domain = "typing"
	DomainTopology   Domain = "topology"
	DomainAdaptation Domain = "adaptation"
	DomainRuntime    Domain = "runtime"
)

// Code is a stable diagnostic identifier string (spec.md §7).
type Code string

const (
	CodeDanglingEdge                   Code = "DanglingEdge"
	CodeDuplicateBlockId               Code = "DuplicateBlockId"
	CodeUnknownBlockType               Code = "UnknownBlockType"
	CodeTypeMismatch                   Code = "TypeMismatch"
	CodeUnresolvedType                 Code = "UnresolvedType"
	CodeConflictingPayloads            Code = "ConflictingPayloads"
	CodePayloadNotSupportedByDefault   Code = "PayloadNotSupportedByDefaultSource"
	CodeCycleIllegal                   Code = "CycleIllegal"
	CodeNoTimeRoot                     Code = "NoTimeRoot"
	CodeMultipleTimeRoots              Code = "MultipleTimeRoots"
	CodeTimeAlgebraicLoop              Code = "TimeAlgebraicLoop"
	CodeUnbridgeable                   Code = "Unbridgeable"
	CodeNaN                            Code = "NaN"
	CodeInf                            Code = "Inf"
	CodeFrameBudget                    Code = "FrameBudget"
	CodeDomainMismatch                 Code = "DomainMismatch"
	CodeHeavyMaterialization           Code = "HeavyMaterialization"
)

// Action is a suggested remediation a host UI may offer; the core
// never executes these, it only describes them (spec.md §4.13).
type ActionKind string

const (
	ActionGoToTarget     ActionKind = "goToTarget"
	ActionInsertBlock    ActionKind = "insertBlock"
	ActionAddAdapter     ActionKind = "addAdapter"
	ActionCreateTimeRoot ActionKind = "createTimeRoot"
	ActionMuteDiagnostic ActionKind = "muteDiagnostic"
)

type Action struct {
	Kind    ActionKind
	Target  string
	Payload map[string]any
}

// Scope carries the revision/session the diagnostic belongs to, used
// by the hub to decide replace-vs-merge semantics and to compute the
// stable id.
type Scope struct {
	PatchRevision    int
	CompileID        string
	RuntimeSessionID string
}

// Payload carries structured, diagnostic-specific context.
type Payload map[string]any

// Diagnostic is the structured unit the DiagnosticHub tracks. Id is
// stableHash(code, targetStr, revision) so the same underlying fault
// deduplicates across passes and frames (spec.md §4.13, §7).
type Diagnostic struct {
	ID            string
	Code          Code
	Severity      Severity
	Domain        Domain
	PrimaryTarget string
	Scope         Scope
	Title         string
	Message       string
	Metadata      Payload
	Actions       []Action
}

func stableHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// New builds a Diagnostic with a stable id derived from (code,
// primaryTarget, revision) so republishing the same fault against the
// same revision is idempotent (spec.md §7: "Diagnostics are keyed by
// (code, primaryTarget, revision) so the same underlying fault does
// not multiply").
func New(code Code, severity Severity, domain Domain, target string, scope Scope, title, message string) Diagnostic {
	return Diagnostic{
		ID:            stableHash(string(code), target, fmt.Sprintf("%d", scope.PatchRevision)),
		Code:          code,
		Severity:      severity,
		Domain:        domain,
		PrimaryTarget: target,
		Scope:         scope,
		Title:         title,
		Message:       message,
		Metadata:      Payload{},
	}
}

func (d Diagnostic) WithMetadata(k string, v any) Diagnostic {
	if d.Metadata == nil {
		d.Metadata = Payload{}
	}
	d.Metadata[k] = v
	return d
}

func (d Diagnostic) WithAction(a Action) Diagnostic {
	d.Actions = append(d.Actions, a)
	return d
}
