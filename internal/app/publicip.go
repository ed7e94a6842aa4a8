package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"servermanager/internal/config"
	"servermanager/pkg/logging"
)

// DefaultPublicIPEndpoint answers with the caller's address as plain text.
const DefaultPublicIPEndpoint = "https://api.ipify.org"

// DiscoverPublicIP refreshes the stored public address. It runs when no
// address is stored, or always when forced by the launch flag or the
// configuration. Failures keep the stored address.
func (a *Application) DiscoverPublicIP(ctx context.Context) {
	settings := a.Settings()
	force := a.config.Launch.ForcePublicIP || settings.ManagePublicIPAutomatically
	if !force && strings.TrimSpace(settings.MachinePublicIP) != "" {
		return
	}

	endpoint := a.config.PublicIPEndpoint
	if endpoint == "" {
		endpoint = DefaultPublicIPEndpoint
	}
	client := a.config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	ip, err := discoverPublicIP(ctx, client, endpoint)
	if err != nil {
		logging.Warn("PublicIP", "Public IP discovery failed: %v", err)
		return
	}
	if strings.EqualFold(ip, settings.MachinePublicIP) {
		return
	}

	a.mu.Lock()
	a.settings.MachinePublicIP = ip
	updated := a.settings
	a.mu.Unlock()

	logging.Info("PublicIP", "Public IP is %s", ip)
	if err := config.SaveConfig(a.configPath, updated); err != nil {
		logging.Warn("PublicIP", "Could not persist public IP: %v", err)
	}
}

func discoverPublicIP(ctx context.Context, client *http.Client, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 128))
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", errors.New("response is not an IP address")
	}
	return ip, nil
}
