package sdk

import (
	"context"
	"fmt"
	"net/http"
)

// RegisterPhoto records a device photo's metadata. Registering the same local
// photo ID again returns the stored photo.
func (c *Client) RegisterPhoto(ctx context.Context, sessionID string, input PhotoInput) (*Photo, error) {
	if input.LocalPhotoID == "" {
		return nil, fmt.Errorf("local photo ID is required")
	}
	var out Photo
	if err := c.do(ctx, http.MethodPost, "/sessions/"+escape(sessionID)+"/photos", nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPhotoUpload reports that the photo binary is stored under objectKey.
func (c *Client) ConfirmPhotoUpload(ctx context.Context, sessionID, localPhotoID, objectKey string) (*Photo, error) {
	if localPhotoID == "" || objectKey == "" {
		return nil, fmt.Errorf("local photo ID and object key are required")
	}
	body := struct {
		LocalPhotoID string `json:"localPhotoId"`
		ObjectKey    string `json:"objectKey"`
	}{LocalPhotoID: localPhotoID, ObjectKey: objectKey}

	var out Photo
	if err := c.do(ctx, http.MethodPost, "/sessions/"+escape(sessionID)+"/photos/confirm", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPhotos returns the photos registered for a session.
func (c *Client) ListPhotos(ctx context.Context, sessionID string) ([]Photo, error) {
	var out []Photo
	if err := c.do(ctx, http.MethodGet, "/sessions/"+escape(sessionID)+"/photos", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
