package server

import (
	"github.com/ironsheep/image-edit-mcp/internal/ops"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// selectorProperties returns the optional index and id arguments shared by
// the tools that act on one image, merged with extra.
func selectorProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"index": map[string]interface{}{
			"type":        "integer",
			"description": "Position of the image in the collection. Becomes the current image. Defaults to the current image.",
		},
		"id": map[string]interface{}{
			"type":        "string",
			"description": "ID of the image, as returned by image_list. Takes precedence over index.",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Collection
		{
			Name:        "image_load",
			Description: "Load one or more image files in the background. Directories load every supported image they contain. The last loaded image becomes current. Files that fail to load are dropped from the collection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to an image file or directory",
					},
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to image files or directories",
					},
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Block until every load has finished (default: false)",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "image_list",
			Description: "List the open images with their size, state, progress and undo/redo availability.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_select",
			Description: "Make an image the current image. Edits, undo, redo and saving act on the current image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": selectorProperties(nil),
			},
		},
		{
			Name:        "image_set_reference",
			Description: "Mark an image as the reference image for comparison, or clear the reference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"clear": map[string]interface{}{
						"type":        "boolean",
						"description": "Clear the reference instead of setting it",
						"default":     false,
					},
				}),
			},
		},
		{
			Name:        "image_close",
			Description: "Close an image, discarding unsaved changes. Defaults to the current image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": selectorProperties(nil),
			},
		},
		{
			Name:        "image_close_all",
			Description: "Close every image, discarding unsaved changes.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_move",
			Description: "Move the current image one position forward or backward in the collection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"forward", "backward"},
						"description": "forward moves towards the start of the list, backward towards the end",
					},
				},
				"required": []string{"direction"},
			},
		},

		// Editing
		{
			Name:        "image_operations",
			Description: "List the operations accepted by image_modify and their parameters.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "image_modify",
			Description: "Apply an edit operation to an image in the background. The edit can be undone with image_undo. Use image_progress or image_wait to follow it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"operation": map[string]interface{}{
						"type":        "string",
						"enum":        operationNames(),
						"description": "Operation name, see image_operations",
					},
					"params": map[string]interface{}{
						"type":        "object",
						"description": "Operation parameters, see image_operations",
					},
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Block until the edit has finished (default: false)",
						"default":     false,
					},
				}),
				"required": []string{"operation"},
			},
		},
		{
			Name:        "image_undo",
			Description: "Undo the latest edit of an image. Reports changed=false when there is nothing to undo.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": selectorProperties(nil),
			},
		},
		{
			Name:        "image_redo",
			Description: "Redo the latest undone edit of an image. Reports changed=false when there is nothing to redo.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": selectorProperties(nil),
			},
		},
		{
			Name:        "image_progress",
			Description: "Report the state (idle, computing, pending_upload) and progress of an image, plus the error of its last failed edit.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": selectorProperties(nil),
			},
		},
		{
			Name:        "image_wait",
			Description: "Block until the running edit of an image, or of every image, has finished.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"all": map[string]interface{}{
						"type":        "boolean",
						"description": "Wait for every image",
						"default":     false,
					},
				}),
			},
		},
		{
			Name:        "image_save",
			Description: "Save an image. The format follows the file extension (png, jpg, bmp, tiff, gif, ppm, pfm). Pixel values are scaled by 2^exposure and then encoded with the gamma or sRGB curve.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute output path",
					},
					"exposure": map[string]interface{}{
						"type":        "number",
						"description": "Exposure in stops (default: 0)",
						"default":     0,
					},
					"gamma": map[string]interface{}{
						"type":        "number",
						"description": "Encoding gamma, ignored when srgb is set (default: 1)",
						"default":     1.0,
					},
					"srgb": map[string]interface{}{
						"type":        "boolean",
						"description": "Encode with the sRGB curve",
						"default":     false,
					},
					"dither": map[string]interface{}{
						"type":        "boolean",
						"description": "Dither when quantizing to 8 bits",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Inspection
		{
			Name:        "image_preview",
			Description: "Return a downscaled PNG of an image as base64. Source 'texture' returns what has been uploaded for display so far.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum width and height in pixels (default: 512)",
						"default":     DefaultPreviewSize,
					},
					"source": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"image", "texture"},
						"description": "Read the image pixels or the display texture (default: image)",
						"default":     "image",
					},
				}),
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel coordinate. Returns hex, RGBA and HSL values.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				}),
				"required": []string{"x", "y"},
			},
		},
		{
			Name:        "image_statistics",
			Description: "Compute minimum, maximum and average channel values and a per-channel histogram at the given exposure. Results are cached until the image changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"exposure": map[string]interface{}{
						"type":        "number",
						"description": "Exposure in stops (default: 0)",
						"default":     0,
					},
					"axis": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"linear", "srgb", "log"},
						"description": "Histogram x-axis scale (default: linear)",
						"default":     "linear",
					},
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Number of histogram bins, a divisor of 256 (default: 256)",
						"default":     256,
					},
				}),
			},
		},
		{
			Name:        "image_ocr",
			Description: "Extract text from an image, or from a region of it when x1, y1, x2 and y2 are given. Returns the text and word bounding boxes in image coordinates.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default: configured language, usually eng)",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge of the region",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge of the region",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge of the region",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge of the region",
					},
				}),
			},
		},
		{
			Name:        "image_detect_text_regions",
			Description: "Find blocks of text in an image without reading them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": selectorProperties(map[string]interface{}{
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum confidence between 0 and 1 (default: 0.5)",
						"default":     0.5,
					},
				}),
			},
		},
	}
}

func operationNames() []string {
	list := ops.List()
	names := make([]string, len(list))
	for i, op := range list {
		names[i] = op.Name
	}
	return names
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
