package updater

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/minio/selfupdate"
)

// Manifest is the JSON release manifest published alongside new builds.
type Manifest struct {
	Version             string `json:"version"`
	DownloadURLWindows  string `json:"download_url_windows"`
	DownloadURLMac      string `json:"download_url_mac"`
	DownloadURLMacArm64 string `json:"download_url_mac_arm64"`
	DownloadURLLinux    string `json:"download_url_linux"`
	ReleaseNotes        string `json:"release_notes"`
}

// CheckResult describes whether an update is available for this platform.
type CheckResult struct {
	Available    bool   `json:"available"`
	Version      string `json:"version"`
	ReleaseNotes string `json:"release_notes"`
	DownloadURL  string `json:"download_url"`
}

// CheckUpdate fetches the manifest at manifestURL and compares its version
// against currentVersion.
func CheckUpdate(currentVersion, manifestURL string) (*CheckResult, error) {
	resp, err := http.Get(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetch update manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("update manifest: %s", resp.Status)
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decode update manifest: %w", err)
	}

	if CompareVersions(manifest.Version, currentVersion) <= 0 {
		return &CheckResult{Available: false}, nil
	}
	return &CheckResult{
		Available:    true,
		Version:      manifest.Version,
		ReleaseNotes: manifest.ReleaseNotes,
		DownloadURL:  downloadURLFor(&manifest),
	}, nil
}

// ApplyUpdate downloads the binary at downloadURL and replaces the running
// executable. selfupdate restores the original on failure.
func ApplyUpdate(downloadURL string) error {
	resp, err := http.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download update: %s", resp.Status)
	}
	return selfupdate.Apply(resp.Body, selfupdate.Options{})
}

func downloadURLFor(manifest *Manifest) string {
	switch runtime.GOOS {
	case "windows":
		return manifest.DownloadURLWindows
	case "darwin":
		if runtime.GOARCH == "arm64" && manifest.DownloadURLMacArm64 != "" {
			return manifest.DownloadURLMacArm64
		}
		return manifest.DownloadURLMac
	case "linux":
		return manifest.DownloadURLLinux
	}
	return ""
}

// CompareVersions compares dotted version strings, ignoring a leading "v".
// Returns 1 if a > b, -1 if a < b, 0 if equal. Non-numeric components count
// as zero.
func CompareVersions(a, b string) int {
	pa := strings.Split(strings.TrimPrefix(a, "v"), ".")
	pb := strings.Split(strings.TrimPrefix(b, "v"), ".")

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var na, nb int
		if i < len(pa) {
			na, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			nb, _ = strconv.Atoi(pb[i])
		}
		if na != nb {
			if na > nb {
				return 1
			}
			return -1
		}
	}
	return 0
}
