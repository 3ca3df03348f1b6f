package drive

import (
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
	MimeTypeShortcut     = "application/vnd.google-apps.shortcut"
)

// MimeTypePPTX is the format Google Slides decks are exported to.
const MimeTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// MaxDownloadSize is the default maximum size of one downloaded file (256MB).
const MaxDownloadSize = 256 << 20

// exportFormats maps Workspace types to the format they are exported as.
// Other Workspace types cannot be downloaded and are listed unchanged, so
// the pipeline records them as unsupported.
var exportFormats = map[string]string{
	MimeTypeGoogleSlides: MimeTypePPTX,
}

// listFields are the file fields requested from files.list.
const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, md5Checksum, size, webViewLink)"

// toSourceFile converts a Drive file to a listing entry. Exported types
// report the MIME type of their export format.
func toSourceFile(f *drive.File, folderPath string) domain.SourceFile {
	mimeType := f.MimeType
	if export, ok := exportFormats[f.MimeType]; ok {
		mimeType = export
	}

	sf := domain.SourceFile{
		ID:         f.Id,
		Name:       f.Name,
		MIMEType:   mimeType,
		FolderPath: folderPath,
		URL:        ViewURL(f.Id, f.WebViewLink),
		Size:       f.Size,
	}
	if f.Md5Checksum != "" {
		sf.ContentHash = "md5:" + strings.ToLower(f.Md5Checksum)
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		sf.ModifiedTime = t.UTC()
	}
	return sf
}

// joinPath appends a folder name to a slash-joined folder path.
func joinPath(parent, name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
