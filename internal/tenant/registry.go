package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

const (
	DefaultAvatarFolder = "avatar"
	DefaultMailFromName = "Accounts"
)

// AppConfig is one tenant entry in apps.json.
type AppConfig struct {
	AppID        string `json:"app_id"`
	AppName      string `json:"app_name"`
	MailFromName string `json:"mail_from_name"`
	AvatarFolder string `json:"avatar_folder"`
}

type AppsFile struct {
	Apps []AppConfig `json:"apps"`
}

type Registry struct {
	mu   sync.RWMutex
	apps map[string]*AppConfig
}

func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]*AppConfig),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps config: %w", err)
	}

	var file AppsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse apps config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Apps {
		if file.Apps[i].AppID == "" {
			return nil, fmt.Errorf("apps config entry %d has no app_id", i)
		}
		registry.Register(&file.Apps[i])
	}
	return registry, nil
}

// Register adds or replaces a tenant, filling defaults for unset fields.
func (r *Registry) Register(cfg *AppConfig) {
	if cfg.AvatarFolder == "" {
		cfg.AvatarFolder = DefaultAvatarFolder
	}
	if cfg.MailFromName == "" {
		if cfg.AppName != "" {
			cfg.MailFromName = cfg.AppName
		} else {
			cfg.MailFromName = DefaultMailFromName
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[cfg.AppID] = cfg
}

func (r *Registry) Get(appID string) *AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.apps[appID]
}

func (r *Registry) Exists(appID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.apps[appID]
	return ok
}

// AvatarFolder returns the image-host folder for a tenant.
func (r *Registry) AvatarFolder(appID string) string {
	if cfg := r.Get(appID); cfg != nil {
		return cfg.AvatarFolder
	}
	return DefaultAvatarFolder
}

// MailFromName returns the display name used on outgoing mail for a tenant.
func (r *Registry) MailFromName(appID string) string {
	if cfg := r.Get(appID); cfg != nil {
		return cfg.MailFromName
	}
	return DefaultMailFromName
}

// All returns the tenants sorted by app_id.
func (r *Registry) All() []*AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*AppConfig, 0, len(r.apps))
	for _, cfg := range r.apps {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AppID < result[j].AppID })
	return result
}
