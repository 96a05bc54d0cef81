// vaultctl is a small CLI client for a running StreamVault server:
// it logs in with the shared secret, uploads videos and lists the library.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	server := flag.String("server", "http://localhost:5002", "server base URL")
	token := flag.String("token", os.Getenv("STREAMVAULT_TOKEN"), "static API bearer token")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := &apiClient{base: strings.TrimRight(*server, "/"), token: *token}

	var err error
	switch args[0] {
	case "upload":
		err = runUpload(client, args[1:])
	case "videos":
		err = runVideos(client)
	case "folders":
		err = runFolders(client)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: vaultctl [-server URL] [-token TOKEN] <command>

Commands:
  upload -id <customId> -title <title> [-folder <folderId>] <file>
  videos
  folders`)
}

type apiClient struct {
	base  string
	token string
}

func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultClient.Do(req)
}

func runUpload(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	customID := fs.String("id", "", "custom id for the video (required)")
	title := fs.String("title", "", "display title (required)")
	folderID := fs.String("folder", "", "destination folder id")
	description := fs.String("description", "", "optional description")
	fs.Parse(args)

	if *customID == "" || *title == "" || fs.NArg() != 1 {
		return fmt.Errorf("upload requires -id, -title and exactly one file")
	}
	path := fs.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	// Stream the multipart body through a pipe so large videos are not
	// buffered in memory.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()

		writer.WriteField("customId", *customID)
		writer.WriteField("title", *title)
		if *folderID != "" {
			writer.WriteField("folderId", *folderID)
		}
		if *description != "" {
			writer.WriteField("description", *description)
		}

		part, err := writer.CreateFormFile("video", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequest(http.MethodPost, client.base+"/api/videos/upload", pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return decodeError(resp)
	}

	var video struct {
		ID       int    `json:"id"`
		CustomID string `json:"customId"`
		Size     int64  `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("✓ Uploaded %s (%d bytes)\n", video.CustomID, video.Size)
	fmt.Printf("  Stream URL: %s/api/stream/%s\n", client.base, video.CustomID)
	return nil
}

func runVideos(client *apiClient) error {
	req, err := http.NewRequest(http.MethodGet, client.base+"/api/videos/all", nil)
	if err != nil {
		return err
	}

	resp, err := client.do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var videos []struct {
		ID       int    `json:"id"`
		CustomID string `json:"customId"`
		Title    string `json:"title"`
		Size     int64  `json:"size"`
		Views    int    `json:"views"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&videos); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	for _, v := range videos {
		fmt.Printf("%-6d %-24s %-40s %12d bytes  %d views\n", v.ID, v.CustomID, v.Title, v.Size, v.Views)
	}
	return nil
}

func runFolders(client *apiClient) error {
	req, err := http.NewRequest(http.MethodGet, client.base+"/api/folders/all", nil)
	if err != nil {
		return err
	}

	resp, err := client.do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var folders []struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		ParentID *int   `json:"parentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	for _, f := range folders {
		parent := "-"
		if f.ParentID != nil {
			parent = fmt.Sprintf("%d", *f.ParentID)
		}
		fmt.Printf("%-6d %-40s parent=%s\n", f.ID, f.Name, parent)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
