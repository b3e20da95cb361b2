package document

import _ "embed"

// Welcome is the sample document shown when the editor starts without a file.
//
//go:embed welcome.md
var Welcome string
