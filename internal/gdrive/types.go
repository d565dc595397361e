package gdrive

// MIME types of Drive-native node kinds.
const (
	MimeFolder       = "application/vnd.google-apps.folder"
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
)

// File represents a Drive node (file or folder), normalized from the
// API response — callers never see raw API data.
type File struct {
	ID          string
	Name        string
	MimeType    string
	MD5Checksum string // hex; empty for folders and Drive-native documents
	Size        int64  // 0 for folders and Drive-native documents
	ResourceKey string // access key for link-shared nodes; empty otherwise
}

// IsFolder reports whether the node is a Drive folder.
func (f *File) IsFolder() bool {
	return f.MimeType == MimeFolder
}

// ExportFormat describes the interchange format a Drive-native document
// is transcoded to on download.
type ExportFormat struct {
	MimeType  string
	Extension string // includes the leading dot
}

// exportFormats maps each rich-document family to its fixed target format.
var exportFormats = map[string]ExportFormat{
	MimeDocument: {
		MimeType:  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Extension: ".docx",
	},
	MimeSpreadsheet: {
		MimeType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension: ".xlsx",
	},
	MimePresentation: {
		MimeType:  "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		Extension: ".pptx",
	},
}

// ExportFormat returns the transcoding target for a Drive-native
// rich document, and whether the node requires export at all.
// Native binary files download directly and return false.
func (f *File) ExportFormat() (ExportFormat, bool) {
	ef, ok := exportFormats[f.MimeType]
	return ef, ok
}
