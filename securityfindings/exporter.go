package securityfindings

import (
	"fmt"

	exporter "github.com/lex00/security-findings-exporter-go"
	"github.com/lex00/security-findings-exporter-go/intrinsics"
	"github.com/lex00/security-findings-exporter-go/stack"
)

// Exporter is a provisioned exporter instance.
type Exporter struct {
	unit     *Unit
	env      Environment
	settings Settings
}

// New resolves req and composes one exporter instance into st under id.
// Besides the resources it registers two outputs: <id>FunctionArn, exported
// as "<stack name>-<id>-FunctionArn", and <id>LogGroupName. Like Compose it
// leaves st untouched when it fails.
func New(st *stack.Stack, id string, req Request) (*Exporter, error) {
	outputNames := []string{id + "FunctionArn", id + "LogGroupName"}
	for _, name := range outputNames {
		if err := st.CheckOutput(name); err != nil {
			return nil, fmt.Errorf("exporter %s: %w", id, err)
		}
	}

	env, settings := Resolve(req)
	var opts []ComposeOption
	if req.ScopeToRegions {
		opts = append(opts, WithRegionScope())
	}
	unit, err := Compose(st, id, env, settings, opts...)
	if err != nil {
		return nil, err
	}

	outputs := map[string]exporter.Output{
		id + "FunctionArn": {
			Description: "ARN of the security findings exporter function",
			Value:       unit.FunctionArnRef(),
			Export: &exporter.OutputExport{
				Name: intrinsics.Sub{String: "${AWS::StackName}-" + id + "-FunctionArn"},
			},
		},
		id + "LogGroupName": {
			Description: "Log group of the security findings exporter function",
			Value:       intrinsics.Ref{LogicalName: unit.LogGroupID},
		},
	}
	for _, name := range outputNames {
		if err := st.AddOutput(name, outputs[name]); err != nil {
			return nil, fmt.Errorf("exporter %s: %w", id, err)
		}
	}

	return &Exporter{unit: unit, env: env, settings: settings}, nil
}

// FunctionArn returns the function ARN reference string, see Export.
func (e *Exporter) FunctionArn() string {
	return Export(e.unit)
}

// FunctionArnRef returns the function ARN as a Fn::GetAtt reference.
func (e *Exporter) FunctionArnRef() exporter.AttrRef {
	return e.unit.FunctionArnRef()
}

// Unit returns the composed resources.
func (e *Exporter) Unit() *Unit {
	return e.unit
}

// Environment returns a copy of the resolved function environment.
func (e *Exporter) Environment() Environment {
	return e.env.Clone()
}

// Settings returns the pinned function settings.
func (e *Exporter) Settings() Settings {
	return e.settings
}
