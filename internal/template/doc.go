// Package template compiles declarative status-file templates and extracts
// named fields from text that follows them.
//
// A template is literal text interleaved with %name% placeholders, for
// example "%title% %artist% %master_bpm%". Literal segments must appear
// verbatim in the input; each placeholder captures the text between its
// neighbouring literals. Matching is anchored at the start of the input and
// tolerates trailing text the template does not describe.
//
// Malformed templates are rejected by Compile so configuration errors surface
// at startup. A non-matching input yields ErrNoMatch rather than a partial
// result.
package template
