package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ToolMeta holds metadata about a registered tool extracted via reflection.
type ToolMeta struct {
	name        string
	description string
	schema      map[string]any
	tool        any // The actual tool (sqlagent.Tool[I, O])
}

// Name returns the tool's name.
func (m *ToolMeta) Name() string { return m.name }

// Description returns the tool's description.
func (m *ToolMeta) Description() string { return m.description }

// Schema returns the tool's parameter schema.
func (m *ToolMeta) Schema() map[string]any { return m.schema }

// Tool returns the actual tool.
func (m *ToolMeta) Tool() any { return m.tool }

// GetToolMeta extracts metadata from a generic sqlagent.Tool[I, O] using
// reflection.
func GetToolMeta(tool any) (*ToolMeta, error) {
	toolVal := reflect.ValueOf(tool)
	if !toolVal.IsValid() {
		return nil, errors.New("invalid tool value")
	}

	nameMethod := toolVal.MethodByName("Name")
	if !nameMethod.IsValid() {
		return nil, errors.New("tool does not have Name method")
	}
	name := nameMethod.Call(nil)[0].String()

	descMethod := toolVal.MethodByName("Description")
	if !descMethod.IsValid() {
		return nil, errors.New("tool does not have Description method")
	}
	description := descMethod.Call(nil)[0].String()

	schemaMethod := toolVal.MethodByName("ParameterSchema")
	if !schemaMethod.IsValid() {
		return nil, errors.New("tool does not have ParameterSchema method")
	}
	schemaResult := schemaMethod.Call(nil)[0]
	var schema map[string]any
	if !schemaResult.IsNil() {
		schema = schemaResult.Interface().(map[string]any)
	}

	callMethod := toolVal.MethodByName("Call")
	if !callMethod.IsValid() {
		return nil, errors.New("tool does not have Call method")
	}
	if callMethod.Type().NumIn() != 2 {
		return nil, fmt.Errorf(
			"Call method has unexpected signature: expected 2 params, got %d",
			callMethod.Type().NumIn(),
		)
	}

	return &ToolMeta{
		name:        name,
		description: description,
		schema:      schema,
		tool:        tool,
	}, nil
}

// TransformArgs converts raw args (map[string]any) to the tool's typed
// input by marshaling through JSON. The input type I is discovered from the
// Call method signature: Call(ctx, input I) (O, error).
//
// Returns the typed input as `any`; the dynamic type is exactly I, so it
// can be passed straight to CallTool.
func TransformArgs(tool any, args map[string]any) (any, error) {
	toolVal := reflect.ValueOf(tool)
	if !toolVal.IsValid() {
		return nil, errors.New("invalid tool value")
	}

	callMethod := toolVal.MethodByName("Call")
	if !callMethod.IsValid() {
		return nil, errors.New("tool does not have Call method")
	}

	callType := callMethod.Type()
	if callType.NumIn() != 2 {
		return nil, fmt.Errorf(
			"Call method has unexpected signature: expected 2 params, got %d",
			callType.NumIn(),
		)
	}
	inputType := callType.In(1) // ctx is 0, input is 1

	var inputVal reflect.Value
	if inputType.Kind() == reflect.Ptr {
		inputVal = reflect.New(inputType.Elem())
	} else {
		// Non-pointer types need an addressable value for unmarshaling.
		inputVal = reflect.New(inputType)
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}
	if err := json.Unmarshal(argsJSON, inputVal.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args into input type: %w", err)
	}

	if inputType.Kind() == reflect.Ptr {
		return inputVal.Interface(), nil
	}
	return inputVal.Elem().Interface(), nil
}

// CallTool invokes a generic sqlagent.Tool[I, O] with already-typed input
// and returns the typed output as `any`.
//
// The typedInput must be exactly the tool's input type I; use TransformArgs
// to produce it from raw arguments first.
func CallTool(ctx context.Context, tool any, typedInput any) (any, error) {
	toolVal := reflect.ValueOf(tool)
	if !toolVal.IsValid() {
		return nil, errors.New("invalid tool value")
	}

	callMethod := toolVal.MethodByName("Call")
	if !callMethod.IsValid() {
		return nil, errors.New("tool does not have Call method")
	}

	results := callMethod.Call([]reflect.Value{
		reflect.ValueOf(ctx),
		reflect.ValueOf(typedInput),
	})

	// Results: (O, error)
	outVal := results[0]
	errVal := results[1]

	if !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}

	return outVal.Interface(), nil
}
