package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"image_load",
		"image_list",
		"image_select",
		"image_set_reference",
		"image_close",
		"image_close_all",
		"image_move",
		"image_operations",
		"image_modify",
		"image_undo",
		"image_redo",
		"image_progress",
		"image_wait",
		"image_save",
		"image_preview",
		"image_sample_color",
		"image_statistics",
		"image_ocr",
		"image_detect_text_regions",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Dispatch(t *testing.T) {
	// every advertised tool must be known to executeTool
	s := New()
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			_, err := s.executeTool(tool.Name, json.RawMessage(`{"bogus": true}`))
			if err != nil && err.Error() == "unknown tool: "+tool.Name {
				t.Errorf("%s is advertised but not dispatched", tool.Name)
			}
		})
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	tools := GetToolDefinitions()

	for _, tool := range tools {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}

			schemaType, ok := tool.InputSchema["type"]
			if !ok {
				t.Fatal("InputSchema missing 'type' field")
			}
			if schemaType != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", schemaType)
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// required names must be declared properties
			if required, ok := tool.InputSchema["required"]; ok {
				list, ok := required.([]string)
				if !ok {
					t.Fatal("'required' should be a string slice")
				}
				for _, r := range list {
					if _, ok := props[r]; !ok {
						t.Errorf("required %q is not a property", r)
					}
				}
			}

			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_Selector(t *testing.T) {
	withSelector := []string{
		"image_select",
		"image_modify",
		"image_undo",
		"image_redo",
		"image_save",
		"image_preview",
		"image_statistics",
		"image_ocr",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, name := range withSelector {
		t.Run(name, func(t *testing.T) {
			props := toolMap[name].InputSchema["properties"].(map[string]interface{})
			for _, p := range []string{"index", "id"} {
				if _, ok := props[p]; !ok {
					t.Errorf("missing %q property", p)
				}
			}
		})
	}
}

func TestToolDefinitions_ModifyEnumeratesOperations(t *testing.T) {
	var modify Tool
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "image_modify" {
			modify = tool
		}
	}

	props := modify.InputSchema["properties"].(map[string]interface{})
	op := props["operation"].(map[string]interface{})
	names, ok := op["enum"].([]string)
	if !ok || len(names) == 0 {
		t.Fatal("operation enum is empty")
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"crop", "invert", "edge_detect", "grid_overlay"} {
		if !seen[want] {
			t.Errorf("operation enum missing %s", want)
		}
	}
}
