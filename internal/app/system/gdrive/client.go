// Package gdrive is the only part of the system that talks to the external
// document provider (Google Drive/Sheets). Everything above it deals in
// normalized operations and errors; nothing provider-specific leaks out
// except the opaque file and grant ids recorded on document records.
package gdrive

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var scopes = []string{
	drive.DriveScope,
	sheets.SpreadsheetsScope,
}

// Client wraps the Drive and Sheets services for one service account. The
// credentials and underlying HTTP client are read-mostly shared state; a
// single Client is safe for concurrent use.
type Client struct {
	drive  *drive.Service
	sheets *sheets.Service
	email  string // service account address, shown to users for pre-sharing
	folder string // optional Drive folder for newly provisioned files
	log    *zap.Logger
}

// NewClient builds a Client from a service-account credentials file.
// folderID may be empty, in which case new files land in the service
// account's root.
func NewClient(ctx context.Context, credsFile, folderID string, logger *zap.Logger) (*Client, error) {
	raw, err := os.ReadFile(credsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	httpClient := cfg.Client(ctx)

	driveSrv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	sheetsSrv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("init sheets service: %w", err)
	}

	return &Client{
		drive:  driveSrv,
		sheets: sheetsSrv,
		email:  cfg.Email,
		folder: folderID,
		log:    logger,
	}, nil
}

// ServiceEmail returns the provider account users must share documents with
// before registering them.
func (c *Client) ServiceEmail() string {
	return c.email
}
