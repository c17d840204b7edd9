package models

// SharedFile is a code snippet shared through a short-lived link.
type SharedFile struct {
	Title      string `json:"title"`
	Code       string `json:"code"`
	Language   string `json:"language"`
	ExpiryTime string `json:"expiry_time"`
	Owner      string `json:"owner,omitempty"`
}

// Public strips fields that readers must not see.
func (f *SharedFile) Public() *SharedFile {
	if f == nil {
		return nil
	}
	out := *f
	out.Owner = ""
	return &out
}

// ShareReceipt is returned to the uploader.
type ShareReceipt struct {
	Locator    string `json:"-"`
	FileURL    string `json:"fileUrl"`
	ExpiryTime string `json:"expiry_time"`
}
