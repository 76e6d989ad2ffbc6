// Package server implements the MCP (Model Context Protocol) server for the
// image editor.
//
// The server exposes a collection of editable images over JSON-RPC 2.0. Edits
// run in the background; the server keeps them moving with a periodic
// maintenance tick and reports progress through notifications.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Collection:
//   - image_load: Load files or directories in the background
//   - image_list: Describe every open image
//   - image_select: Choose the current image
//   - image_set_reference: Choose or clear the reference image
//   - image_close, image_close_all: Close images
//   - image_move: Reorder the current image
//
// Editing:
//   - image_operations: List edit operations and their parameters
//   - image_modify: Run an edit operation
//   - image_undo, image_redo: Walk the edit history
//   - image_progress, image_wait: Follow a running edit
//   - image_save: Write the image with exposure, gamma and dithering
//
// Inspection:
//   - image_preview: Downscaled PNG of the image or its display texture
//   - image_sample_color: Color at a pixel
//   - image_statistics: Channel statistics and histogram
//   - image_ocr, image_detect_text_regions: Text recognition
//
// Tools that act on one image accept an optional index or id; the selected
// image becomes current. Without one they act on the current image.
//
// # Notifications
//
// Collection events are queued while a tool call or tick runs and written
// after it:
//   - notifications/images/modify_started: an edit or load was launched
//   - notifications/images/modified: edits finished, or after undo, redo, save or reorder
//   - notifications/images/current_changed
//   - notifications/images/reference_changed
//   - notifications/images/count_changed
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A failed edit does not fail the call that launched it unless wait is set.
// Its error is reported by image_progress until the next edit of that image.
//
// # Usage
//
//	srv := server.New(server.WithConfig(cfg), server.WithLogger(logger))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
