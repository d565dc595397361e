package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// listPageSize is the pageSize value for list requests. The Drive API
// caps page sizes well above this; 100 keeps individual responses small.
const listPageSize = 100

// listFields restricts list responses to the fields the engine needs.
const listFields = "nextPageToken, files(id, name, md5Checksum, size, mimeType)"

// driveFileResponse mirrors the Drive API file JSON exactly.
// Unexported — callers use File via toFile() normalization.
type driveFileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	MD5Checksum string `json:"md5Checksum"`
	Size        string `json:"size"` // int64 serialized as a JSON string
}

type listFilesResponse struct {
	Files         []driveFileResponse `json:"files"`
	NextPageToken string              `json:"nextPageToken"`
}

// toFile normalizes a Drive API file response into our File type.
// The resource key of the listed parent is propagated to every child
// so content fetches for link-shared trees carry it.
func (d *driveFileResponse) toFile(resourceKey string, logger *slog.Logger) File {
	f := File{
		ID:          d.ID,
		Name:        d.Name,
		MimeType:    d.MimeType,
		MD5Checksum: d.MD5Checksum,
		ResourceKey: resourceKey,
	}

	if d.Size != "" {
		size, err := strconv.ParseInt(d.Size, 10, 64)
		if err != nil {
			logger.Warn("unparseable size, treating as zero",
				slog.String("file_id", d.ID),
				slog.String("raw", d.Size),
			)
		} else {
			f.Size = size
		}
	}

	return f
}

// ListChildren returns all direct children of a folder, handling
// pagination internally so the complete child set comes back as one
// logical result. resourceKey may be empty.
func (c *Client) ListChildren(ctx context.Context, folderID, resourceKey string) ([]File, error) {
	c.logger.Info("listing children",
		slog.String("folder_id", folderID),
	)

	var files []File

	pageToken := ""
	page := 1

	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", folderID))
		q.Set("pageSize", strconv.Itoa(listPageSize))
		q.Set("fields", listFields)

		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		resp, err := c.Do(ctx, http.MethodGet, "/files?"+q.Encode(), resourceKeyHeaderFor(folderID, resourceKey))
		if err != nil {
			return nil, err
		}

		var lfr listFilesResponse

		decodeErr := json.NewDecoder(resp.Body).Decode(&lfr)
		resp.Body.Close()

		if decodeErr != nil {
			return nil, fmt.Errorf("gdrive: decoding list response: %w", decodeErr)
		}

		for i := range lfr.Files {
			files = append(files, lfr.Files[i].toFile(resourceKey, c.logger))
		}

		c.logger.Debug("fetched children page",
			slog.Int("page", page),
			slog.Int("count", len(lfr.Files)),
		)

		if lfr.NextPageToken == "" {
			break
		}

		pageToken = lfr.NextPageToken
		page++
	}

	c.logger.Info("listed children complete",
		slog.String("folder_id", folderID),
		slog.Int("total_items", len(files)),
	)

	return files, nil
}

// Delete removes a Drive node (file or folder). Returns nil on
// success (HTTP 204). Callers treat ErrNotFound as already-deleted.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	c.logger.Info("deleting node",
		slog.String("file_id", fileID),
	)

	resp, err := c.Do(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil)
	if err != nil {
		return err
	}

	// 204 No Content — drain and close to reuse the connection.
	defer resp.Body.Close()

	if _, copyErr := io.Copy(io.Discard, resp.Body); copyErr != nil {
		return fmt.Errorf("gdrive: draining delete response body: %w", copyErr)
	}

	return nil
}
