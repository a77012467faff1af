package engine

import (
	"fmt"
	"net/url"
)

// VideoID returns the "v" query parameter of a watch URL.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVideoID, err)
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", ErrInvalidVideoID
	}
	return id, nil
}
