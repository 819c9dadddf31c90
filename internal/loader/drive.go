package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"citemon/internal/config"
)

const (
	mimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	mimeXLSX        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DriveClient reads spreadsheets from Google Drive. Native Google Sheets
// are exported as XLSX; other files are downloaded as stored.
type DriveClient struct {
	service *drive.Service
}

func NewDriveClient(ctx context.Context, cfg config.Config) (*DriveClient, error) {
	if err := cfg.Require("GDRIVE_CLIENT_ID", cfg.GDriveClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GDRIVE_CLIENT_SECRET", cfg.GDriveClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GDRIVE_REFRESH_TOKEN", cfg.GDriveRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GDriveRedirectURI,
		Scopes:       []string{drive.DriveReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken})
	svc, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return &DriveClient{service: svc}, nil
}

func (c *DriveClient) Fetch(ctx context.Context, fileID string) ([]byte, string, error) {
	meta, err := c.service.Files.Get(fileID).Fields("id", "name", "mimeType").Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("drive metadata: %w", err)
	}

	name := meta.Name
	var body io.ReadCloser
	if meta.MimeType == mimeGoogleSheet {
		resp, err := c.service.Files.Export(fileID, mimeXLSX).Context(ctx).Download()
		if err != nil {
			return nil, "", fmt.Errorf("drive export: %w", err)
		}
		body = resp.Body
		if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
			name += ".xlsx"
		}
	} else {
		resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return nil, "", fmt.Errorf("drive download: %w", err)
		}
		body = resp.Body
	}
	defer body.Close()

	content, err := io.ReadAll(body)
	if err != nil {
		return nil, "", err
	}
	return content, name, nil
}
