package assets

// DefaultStyleName is the built-in GitHub light stylesheet.
const DefaultStyleName = "github"

// DocumentTemplateName is the standalone export document template.
const DocumentTemplateName = "document"
