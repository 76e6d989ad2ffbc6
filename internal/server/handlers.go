package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-edit-mcp/internal/collection"
	"github.com/ironsheep/image-edit-mcp/internal/editor"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
	"github.com/ironsheep/image-edit-mcp/internal/ocr"
	"github.com/ironsheep/image-edit-mcp/internal/ops"
)

// DefaultPreviewSize bounds the longer side of image_preview output.
const DefaultPreviewSize = 512

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_modify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	s.mu.Lock()
	result, err := s.executeTool(params.Name, params.Arguments)
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
// It runs with s.mu held.
//
// Tools that act on an image take an optional index or id. When given, that
// image becomes current first; otherwise the current image is used.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Collection
	case "image_load":
		return s.handleImageLoad(args)
	case "image_list":
		return s.listResult(), nil
	case "image_select":
		return s.handleImageSelect(args)
	case "image_set_reference":
		return s.handleImageSetReference(args)
	case "image_close":
		return s.handleImageClose(args)
	case "image_close_all":
		s.images.CloseAllImages()
		return s.listResult(), nil
	case "image_move":
		return s.handleImageMove(args)

	// Editing
	case "image_operations":
		return ops.List(), nil
	case "image_modify":
		return s.handleImageModify(args)
	case "image_undo":
		return s.handleImageHistory(args, s.images.Undo)
	case "image_redo":
		return s.handleImageHistory(args, s.images.Redo)
	case "image_progress":
		return s.handleImageProgress(args)
	case "image_wait":
		return s.handleImageWait(args)
	case "image_save":
		return s.handleImageSave(args)

	// Inspection
	case "image_preview":
		return s.handleImagePreview(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_statistics":
		return s.handleImageStatistics(args)
	case "image_ocr":
		return s.handleImageOCR(args)
	case "image_detect_text_regions":
		return s.handleImageDetectTextRegions(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating absent arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Image Selection ===

// imageSelector picks an image by id or index. Both empty means current.
type imageSelector struct {
	Index *int   `json:"index,omitempty"`
	ID    string `json:"id,omitempty"`
}

func (sel imageSelector) given() bool { return sel.Index != nil || sel.ID != "" }

// resolve returns the index sel refers to.
func (s *Server) resolve(sel imageSelector) (int, error) {
	switch {
	case sel.ID != "":
		i := s.images.Find(sel.ID)
		if i < 0 {
			return -1, fmt.Errorf("no image with id %q", sel.ID)
		}
		return i, nil
	case sel.Index != nil:
		if s.images.Image(*sel.Index) == nil {
			return -1, fmt.Errorf("image index %d out of range (%d images)", *sel.Index, s.images.Len())
		}
		return *sel.Index, nil
	default:
		if s.images.CurrentImage() == nil {
			return -1, collection.ErrNoCurrentImage
		}
		return s.images.CurrentIndex(), nil
	}
}

// target makes the selected image current and returns it.
func (s *Server) target(sel imageSelector) (*editor.EditableImage, error) {
	i, err := s.resolve(sel)
	if err != nil {
		return nil, err
	}
	if sel.given() {
		s.images.SetCurrentImageIndex(i, false)
	}
	return s.images.Image(i), nil
}

// pixels returns the target's current pixels, failing for an empty image.
func (s *Server) pixels(sel imageSelector) (*image.NRGBA, error) {
	img, err := s.target(sel)
	if err != nil {
		return nil, err
	}
	px := img.Image()
	if px == nil {
		return nil, imgutil.ErrNullImage
	}
	return px, nil
}

// ImageSummary describes one image of the collection.
type ImageSummary struct {
	Index     int     `json:"index"`
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	State     string  `json:"state"`
	Progress  float32 `json:"progress"`
	Modified  bool    `json:"modified"`
	CanUndo   bool    `json:"can_undo"`
	CanRedo   bool    `json:"can_redo"`
	Current   bool    `json:"current,omitempty"`
	Reference bool    `json:"reference,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) summary(index int) ImageSummary {
	img := s.images.Image(index)
	if img == nil {
		return ImageSummary{Index: -1}
	}
	w, h := img.Size()
	sum := ImageSummary{
		Index:     index,
		ID:        img.ID(),
		Filename:  img.Filename(),
		Width:     w,
		Height:    h,
		State:     img.State().String(),
		Progress:  img.Progress(),
		Modified:  img.IsModified(),
		CanUndo:   img.HasUndo(),
		CanRedo:   img.HasRedo(),
		Current:   index == s.images.CurrentIndex(),
		Reference: index == s.images.ReferenceIndex(),
	}
	if err := img.LastError(); err != nil {
		sum.Error = err.Error()
	}
	return sum
}

// ListResult is returned by tools that change the collection.
type ListResult struct {
	Count     int            `json:"count"`
	Current   int            `json:"current"`
	Reference int            `json:"reference"`
	Images    []ImageSummary `json:"images"`
}

func (s *Server) listResult() *ListResult {
	res := &ListResult{
		Count:     s.images.Len(),
		Current:   s.images.CurrentIndex(),
		Reference: s.images.ReferenceIndex(),
		Images:    make([]ImageSummary, 0, s.images.Len()),
	}
	for i := 0; i < s.images.Len(); i++ {
		res.Images = append(res.Images, s.summary(i))
	}
	return res
}

// === Collection Handlers ===

type imageLoadArgs struct {
	Path  string   `json:"path"`
	Paths []string `json:"paths"`
	Wait  bool     `json:"wait"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	paths := a.Paths
	if a.Path != "" {
		paths = append([]string{a.Path}, paths...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("path or paths is required")
	}

	s.images.LoadImages(paths)
	if a.Wait {
		s.images.Wait()
		s.images.Update()
	}
	return s.listResult(), nil
}

func (s *Server) handleImageSelect(args json.RawMessage) (interface{}, error) {
	var a imageSelector
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if !a.given() {
		return nil, fmt.Errorf("index or id is required")
	}
	i, err := s.resolve(a)
	if err != nil {
		return nil, err
	}
	s.images.SetCurrentImageIndex(i, false)
	return s.summary(i), nil
}

type imageSetReferenceArgs struct {
	imageSelector
	Clear bool `json:"clear"`
}

func (s *Server) handleImageSetReference(args json.RawMessage) (interface{}, error) {
	var a imageSetReferenceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Clear {
		s.images.SetReferenceImageIndex(-1, false)
		return s.listResult(), nil
	}
	if !a.given() {
		return nil, fmt.Errorf("index, id or clear is required")
	}
	i, err := s.resolve(a.imageSelector)
	if err != nil {
		return nil, err
	}
	s.images.SetReferenceImageIndex(i, false)
	return s.listResult(), nil
}

func (s *Server) handleImageClose(args json.RawMessage) (interface{}, error) {
	var a imageSelector
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	i, err := s.resolve(a)
	if err != nil {
		return nil, err
	}
	s.images.CloseImage(i)
	return s.listResult(), nil
}

type imageMoveArgs struct {
	Direction string `json:"direction"`
}

func (s *Server) handleImageMove(args json.RawMessage) (interface{}, error) {
	var a imageMoveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.images.CurrentImage() == nil {
		return nil, collection.ErrNoCurrentImage
	}
	switch a.Direction {
	case "forward":
		s.images.BringImageForward()
	case "backward":
		s.images.SendImageBackward()
	default:
		return nil, fmt.Errorf("direction must be forward or backward, got %q", a.Direction)
	}
	return s.listResult(), nil
}

// === Editing Handlers ===

type imageModifyArgs struct {
	imageSelector
	Operation string                 `json:"operation"`
	Params    map[string]interface{} `json:"params"`
	Wait      bool                   `json:"wait"`
}

func (s *Server) handleImageModify(args json.RawMessage) (interface{}, error) {
	var a imageModifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cmd, err := ops.Build(a.Operation, ops.Params(a.Params))
	if err != nil {
		return nil, err
	}
	img, err := s.target(a.imageSelector)
	if err != nil {
		return nil, err
	}
	if err := s.images.ModifyImageWithProgress(cmd); err != nil {
		return nil, err
	}
	if a.Wait {
		if err := img.WaitForAsyncResult(); err != nil {
			return nil, fmt.Errorf("%s failed: %w", a.Operation, err)
		}
	}
	return s.summary(s.images.CurrentIndex()), nil
}

// HistoryResult reports an undo or redo.
type HistoryResult struct {
	Changed bool         `json:"changed"`
	Image   ImageSummary `json:"image"`
}

func (s *Server) handleImageHistory(args json.RawMessage, step func() (bool, error)) (interface{}, error) {
	var a imageSelector
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.target(a); err != nil {
		return nil, err
	}
	ok, err := step()
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Changed: ok, Image: s.summary(s.images.CurrentIndex())}, nil
}

func (s *Server) handleImageProgress(args json.RawMessage) (interface{}, error) {
	var a imageSelector
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	i, err := s.resolve(a)
	if err != nil {
		return nil, err
	}
	return s.summary(i), nil
}

type imageWaitArgs struct {
	imageSelector
	All bool `json:"all"`
}

func (s *Server) handleImageWait(args json.RawMessage) (interface{}, error) {
	var a imageWaitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.All {
		s.images.Wait()
		s.images.Update()
		return s.listResult(), nil
	}

	i, err := s.resolve(a.imageSelector)
	if err != nil {
		return nil, err
	}
	img := s.images.Image(i)
	// the failure is reported in the summary
	_ = img.WaitForAsyncResult()
	s.images.Update()
	if i = s.images.Find(img.ID()); i < 0 {
		return nil, fmt.Errorf("image %s produced no result and was closed", img.ID())
	}
	return s.summary(i), nil
}

type imageSaveArgs struct {
	imageSelector
	Path     string  `json:"path"`
	Exposure float64 `json:"exposure"`
	Gamma    float64 `json:"gamma"`
	SRGB     bool    `json:"srgb"`
	Dither   bool    `json:"dither"`
}

func (s *Server) handleImageSave(args json.RawMessage) (interface{}, error) {
	var a imageSaveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Gamma == 0 {
		a.Gamma = 1.0
	}
	if _, err := s.target(a.imageSelector); err != nil {
		return nil, err
	}
	if err := s.images.SaveImage(a.Path, a.Exposure, a.Gamma, a.SRGB, a.Dither); err != nil {
		return nil, err
	}
	return s.summary(s.images.CurrentIndex()), nil
}

// === Inspection Handlers ===

// PreviewResult contains a downscaled PNG of an image.
type PreviewResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Source      string `json:"source"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

type imagePreviewArgs struct {
	imageSelector
	MaxSize int    `json:"max_size"`
	Source  string `json:"source"`
}

func (s *Server) handleImagePreview(args json.RawMessage) (interface{}, error) {
	var a imagePreviewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.MaxSize == 0 {
		a.MaxSize = DefaultPreviewSize
	}
	if a.MaxSize < 0 {
		return nil, fmt.Errorf("max_size must be positive, got %d", a.MaxSize)
	}
	if a.Source == "" {
		a.Source = "image"
	}

	img, err := s.target(a.imageSelector)
	if err != nil {
		return nil, err
	}

	var px *image.NRGBA
	switch a.Source {
	case "image":
		px = img.Image()
	case "texture":
		tex, ok := img.Texture().(*editor.LazyTexture)
		if !ok {
			return nil, fmt.Errorf("image texture cannot be read back")
		}
		px = tex.Pixels()
	default:
		return nil, fmt.Errorf("source must be image or texture, got %q", a.Source)
	}
	if px == nil {
		return nil, imgutil.ErrNullImage
	}

	out := image.Image(px)
	b := px.Bounds()
	if b.Dx() > a.MaxSize || b.Dy() > a.MaxSize {
		out = imaging.Fit(px, a.MaxSize, a.MaxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return &PreviewResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		Source:      a.Source,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

type imageSampleColorArgs struct {
	imageSelector
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	px, err := s.pixels(a.imageSelector)
	if err != nil {
		return nil, err
	}
	return imgutil.SampleColor(px, a.X, a.Y)
}

// StatisticsResult carries the summary values and one histogram.
type StatisticsResult struct {
	Exposure   float64      `json:"exposure"`
	Minimum    float64      `json:"minimum"`
	Maximum    float64      `json:"maximum"`
	Average    float64      `json:"average"`
	Axis       string       `json:"axis"`
	Bins       int          `json:"bins"`
	Histogram  [][3]float64 `json:"histogram"`
	Ticks      []float64    `json:"ticks"`
	TickLabels []string     `json:"tick_labels"`
}

type imageStatisticsArgs struct {
	imageSelector
	Exposure float64 `json:"exposure"`
	Axis     string  `json:"axis"`
	Bins     int     `json:"bins"`
}

func (s *Server) handleImageStatistics(args json.RawMessage) (interface{}, error) {
	var a imageStatisticsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Axis == "" {
		a.Axis = editor.LinearAxis.String()
	}
	if a.Bins == 0 {
		a.Bins = editor.NumBins
	}
	axis, err := editor.ParseAxisScale(a.Axis)
	if err != nil {
		return nil, err
	}
	if a.Bins < 1 || a.Bins > editor.NumBins || editor.NumBins%a.Bins != 0 {
		return nil, fmt.Errorf("bins must divide %d, got %d", editor.NumBins, a.Bins)
	}

	img, err := s.target(a.imageSelector)
	if err != nil {
		return nil, err
	}
	if img.IsNull() {
		return nil, imgutil.ErrNullImage
	}
	stats, err := img.Statistics(a.Exposure).Get()
	if err != nil {
		return nil, fmt.Errorf("failed to compute statistics: %w", err)
	}

	h := stats.Histogram(axis)
	return &StatisticsResult{
		Exposure:   stats.Exposure,
		Minimum:    stats.Minimum,
		Maximum:    stats.Maximum,
		Average:    stats.Average,
		Axis:       axis.String(),
		Bins:       a.Bins,
		Histogram:  rebin(h, a.Bins),
		Ticks:      h.Ticks,
		TickLabels: h.TickLabels,
	}, nil
}

// rebin averages groups of adjacent bins down to n.
func rebin(h *editor.Histogram, n int) [][3]float64 {
	group := editor.NumBins / n
	out := make([][3]float64, n)
	for i := range out {
		for j := 0; j < group; j++ {
			v := h.Values[i*group+j]
			for c := 0; c < 3; c++ {
				out[i][c] += v[c] / float64(group)
			}
		}
	}
	return out
}

type imageOCRArgs struct {
	imageSelector
	Language string `json:"language"`
	X1       *int   `json:"x1"`
	Y1       *int   `json:"y1"`
	X2       *int   `json:"x2"`
	Y2       *int   `json:"y2"`
}

// region returns the requested rectangle, if all four edges are set.
func (a imageOCRArgs) region() (image.Rectangle, bool, error) {
	set := 0
	for _, p := range []*int{a.X1, a.Y1, a.X2, a.Y2} {
		if p != nil {
			set++
		}
	}
	switch set {
	case 0:
		return image.Rectangle{}, false, nil
	case 4:
		return image.Rect(*a.X1, *a.Y1, *a.X2, *a.Y2), true, nil
	default:
		return image.Rectangle{}, false, fmt.Errorf("x1, y1, x2 and y2 must be given together")
	}
}

func (s *Server) handleImageOCR(args json.RawMessage) (interface{}, error) {
	var a imageOCRArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.cfg.OCRLanguage
	}
	rect, ok, err := a.region()
	if err != nil {
		return nil, err
	}
	px, err := s.pixels(a.imageSelector)
	if err != nil {
		return nil, err
	}
	if ok {
		return ocr.ExtractTextFromRegion(px, rect, a.Language)
	}
	return ocr.ExtractText(px, a.Language)
}

type imageDetectTextRegionsArgs struct {
	imageSelector
	MinConfidence float64 `json:"min_confidence"`
}

func (s *Server) handleImageDetectTextRegions(args json.RawMessage) (interface{}, error) {
	var a imageDetectTextRegionsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.MinConfidence == 0 {
		a.MinConfidence = 0.5
	}
	px, err := s.pixels(a.imageSelector)
	if err != nil {
		return nil, err
	}
	return ocr.DetectTextRegions(px, a.MinConfidence)
}
