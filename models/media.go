package models

// UploadedImage is one entry of a multi-upload response.
type UploadedImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// StoredImage is one object listed from the bucket.
type StoredImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// DeleteResult reports whether the deleted key existed.
type DeleteResult struct {
	Key     string `json:"key"`
	Existed bool   `json:"existed"`
}
