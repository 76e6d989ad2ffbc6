// Package ops provides the image commands the server can run.
//
// Every constructor validates its parameters and returns an
// editor.CommandWithProgress, or an error describing the bad parameter.
// Commands never write to the image they are given. Whole-image commands
// record a full-image undo; region commands record only the pixels of the
// region they change.
//
// Commands are also registered by name with a parameter schema so that a
// caller can build them from decoded JSON:
//
//	cmd, err := ops.Build("blur", ops.Params{"sigma": 2.0})
package ops
