// Package sanitize is the input trust boundary. Every externally supplied
// structured value passes through it before reaching the permission engine
// or any persistence call.
//
// Three concerns live here:
//
//   - operator stripping: query-shaped maps lose any key carrying a reserved
//     operator prefix, recursively ([SanitizeObject])
//   - markup neutralization: [EscapeHTML], [StripHTMLTags], [SanitizeString]
//   - format validation: [IsValidEmail], [IsValidPhone], [IsValidURL],
//     [SanitizeFilename]
//
// # What this package must NOT do
//
//   - Perform I/O or hold state. Every function is pure.
//   - Import any other authgate package.
package sanitize
