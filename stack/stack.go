// Package stack provides the provisioning context that resources are declared into.
//
// A Stack collects resource declarations, parameters and outputs, enforces
// that logical IDs and claimed physical names are unique, and synthesizes
// the CloudFormation template.
package stack

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/internal/template"
)

var (
	// ErrDuplicateLogicalID is returned when a logical ID is declared twice.
	ErrDuplicateLogicalID = errors.New("duplicate logical ID")

	// ErrInvalidLogicalID is returned for logical IDs CloudFormation would reject.
	ErrInvalidLogicalID = errors.New("invalid logical ID")

	// ErrNameConflict is returned when two resources claim the same physical name.
	ErrNameConflict = errors.New("physical name conflict")
)

var logicalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,255}$`)

// Stack is a deployment definition: one CloudFormation template.
type Stack struct {
	name        string
	description string

	declarations []exporter.Declaration
	index        map[string]int
	parameters   map[string]exporter.Parameter
	outputs      map[string]exporter.Output
	claims       map[string]string // kind + "\x00" + name -> claiming logical ID
}

// Option configures a Stack.
type Option func(*Stack)

// WithDescription sets the template Description.
func WithDescription(description string) Option {
	return func(s *Stack) {
		s.description = description
	}
}

// New creates an empty stack.
func New(name string, opts ...Option) *Stack {
	s := &Stack{
		name:       name,
		index:      make(map[string]int),
		parameters: make(map[string]exporter.Parameter),
		outputs:    make(map[string]exporter.Output),
		claims:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Add declares a resource under logicalID. dependsOn lists resources that
// must be created first even though the properties do not reference them.
func (s *Stack) Add(logicalID string, r exporter.Resource, dependsOn ...string) error {
	if err := s.CheckID(logicalID); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("resource %s: nil value", logicalID)
	}
	s.index[logicalID] = len(s.declarations)
	s.declarations = append(s.declarations, exporter.Declaration{
		Name:         logicalID,
		Value:        r,
		Dependencies: append([]string(nil), dependsOn...),
	})
	return nil
}

// AddParameter declares a template parameter.
func (s *Stack) AddParameter(name string, p exporter.Parameter) error {
	if err := s.CheckID(name); err != nil {
		return err
	}
	s.parameters[name] = p
	return nil
}

// AddOutput declares a template output.
func (s *Stack) AddOutput(name string, o exporter.Output) error {
	if err := s.CheckOutput(name); err != nil {
		return err
	}
	s.outputs[name] = o
	return nil
}

// CheckOutput reports the error AddOutput would return for name without
// adding anything.
func (s *Stack) CheckOutput(name string) error {
	if !logicalIDPattern.MatchString(name) {
		return fmt.Errorf("output %q: %w", name, ErrInvalidLogicalID)
	}
	if _, exists := s.outputs[name]; exists {
		return fmt.Errorf("output %q: %w", name, ErrDuplicateLogicalID)
	}
	return nil
}

// ClaimName registers a physical name of the given kind (e.g. "AWS::Logs::LogGroup")
// for owner. Claiming a name that another resource already holds fails with
// ErrNameConflict; CloudFormation would otherwise fail the deployment.
func (s *Stack) ClaimName(kind, name, owner string) error {
	if err := s.CheckName(kind, name, owner); err != nil {
		return err
	}
	s.claims[kind+"\x00"+name] = owner
	return nil
}

// CheckName reports the error ClaimName would return without claiming.
func (s *Stack) CheckName(kind, name, owner string) error {
	if holder, ok := s.claims[kind+"\x00"+name]; ok && holder != owner {
		return fmt.Errorf("%s name %q claimed by %s and %s: %w", kind, name, holder, owner, ErrNameConflict)
	}
	return nil
}

// Resource returns the declaration for logicalID.
func (s *Stack) Resource(logicalID string) (exporter.Declaration, bool) {
	i, ok := s.index[logicalID]
	if !ok {
		return exporter.Declaration{}, false
	}
	return s.declarations[i], true
}

// Declarations returns the declarations in the order they were added.
func (s *Stack) Declarations() []exporter.Declaration {
	return append([]exporter.Declaration(nil), s.declarations...)
}

// ResourceNames returns the declared logical IDs, sorted.
func (s *Stack) ResourceNames() []string {
	names := make([]string, 0, len(s.declarations))
	for _, d := range s.declarations {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the resolved dependency graph of the declared resources.
func (s *Stack) Dependencies() (map[string][]string, error) {
	return s.builder().Dependencies()
}

// Synth builds the CloudFormation template.
func (s *Stack) Synth() (*exporter.Template, error) {
	tmpl, err := s.builder().Build()
	if err != nil {
		return nil, fmt.Errorf("synthesizing stack %s: %w", s.name, err)
	}
	return tmpl, nil
}

func (s *Stack) builder() *template.Builder {
	b := template.NewBuilder(s.declarations)
	b.SetDescription(s.description)
	for name, p := range s.parameters {
		b.SetParameter(name, p)
	}
	for name, o := range s.outputs {
		b.SetOutput(name, o)
	}
	return b
}

// CheckID reports the error Add or AddParameter would return for logicalID
// without declaring anything.
func (s *Stack) CheckID(logicalID string) error {
	if !logicalIDPattern.MatchString(logicalID) {
		return fmt.Errorf("%q: %w", logicalID, ErrInvalidLogicalID)
	}
	if _, exists := s.index[logicalID]; exists {
		return fmt.Errorf("%q: %w", logicalID, ErrDuplicateLogicalID)
	}
	if _, exists := s.parameters[logicalID]; exists {
		return fmt.Errorf("%q: %w", logicalID, ErrDuplicateLogicalID)
	}
	return nil
}
