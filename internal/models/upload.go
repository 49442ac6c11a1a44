package models

// Upload is one image file received from a client, before it is stored.
type Upload struct {
	Filename string
	Data     []byte
}
