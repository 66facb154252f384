// Package analysis turns the free-form text a generative model returns for an
// uploaded image into a well-formed Record, or a tagged *Error.
//
// Stages, in order: Normalize strips fences and backticks; the normalized text
// is parsed directly when it looks like an object; otherwise ExtractObject
// isolates the object span, RepairSyntax fixes trailing commas and smart quotes,
// and ParseObject runs again. Validate then checks field presence and types,
// and RepairFields trims strings and fixes keyTokens at seven entries.
//
// Every stage is pure. Retrying the model on failure is left to callers.
package analysis
