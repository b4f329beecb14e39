// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credential is one entry of the per-user credentials file.
type Credential struct {
	Type    string `json:"type"` // "api"
	Key     string `json:"key"`
	BaseURL string `json:"base_url,omitempty"`
}

// credentialsFile is the on-disk shape: provider name -> Credential.
type credentialsFile map[string]Credential

// userDataDir returns the per-user data directory crow stores its
// credentials file and snapshot store under, following the same
// os.UserHomeDir()-based convention the pack uses for its own caches
// (grounded on haasonsaas-nexus's embeddings cache directory resolution).
func userDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("provider: resolve user home directory: %w", err)
	}
	return filepath.Join(home, ".crow"), nil
}

func credentialsPath() (string, error) {
	dir, err := userDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

// ResolveAPIKey resolves credentials per spec.md §4.1/§6: the named
// environment variable first, then a JSON credentials file entry for
// providerName. Missing credentials are a hard error at construction
// time, never a runtime surprise.
func ResolveAPIKey(envVar, providerName string) (Credential, error) {
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return Credential{Type: "api", Key: key}, nil
		}
	}

	path, err := credentialsPath()
	if err != nil {
		return Credential{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("provider: no %s and no readable credentials file at %s: %w", envVar, path, err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credential{}, fmt.Errorf("provider: parse credentials file %s: %w", path, err)
	}

	cred, ok := creds[providerName]
	if !ok || cred.Key == "" {
		return Credential{}, fmt.Errorf("provider: no credentials for %q in %s", providerName, path)
	}
	return cred, nil
}
