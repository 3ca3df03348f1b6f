package drive

// ViewURL returns the link that opens a file in the Drive viewer.
// The API's webViewLink is preferred when the listing carried one.
func ViewURL(fileID, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	return "https://drive.google.com/file/d/" + fileID + "/view"
}
