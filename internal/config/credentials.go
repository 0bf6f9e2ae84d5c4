package config

import (
	"os"
	"strings"
	"sync"
)

// Credentials authenticate against the Datadog API for one account.
type Credentials struct {
	APIKey string
	AppKey string
}

// CredentialStore resolves account names to Datadog keys. For account
// "prod-eu" it reads PROD_EU_DATADOG_API_KEY and PROD_EU_DATADOG_APP_KEY
// (or the files named by the same variables suffixed _FILE), falling back
// to accounts.prod-eu in the config file.
type CredentialStore struct {
	mu       sync.RWMutex
	accounts map[string]AccountConfig
	getenv   func(string) string
}

func NewCredentialStore(accounts map[string]AccountConfig) *CredentialStore {
	s := &CredentialStore{getenv: os.Getenv}
	s.Update(accounts)
	return s
}

// Update replaces the config-file accounts, e.g. after a reload.
func (s *CredentialStore) Update(accounts map[string]AccountConfig) {
	normalized := make(map[string]AccountConfig, len(accounts))
	for name, acct := range accounts {
		normalized[strings.ToLower(name)] = acct
	}
	s.mu.Lock()
	s.accounts = normalized
	s.mu.Unlock()
}

// Lookup returns the keys for account. ok is false unless both keys resolve.
func (s *CredentialStore) Lookup(account string) (Credentials, bool) {
	if account == "" {
		return Credentials{}, false
	}
	prefix := EnvPrefix(account)
	// an unreadable key file leaves that key unresolved
	apiKey, _ := readSecret(s.getenv, prefix+"_DATADOG_API_KEY")
	appKey, _ := readSecret(s.getenv, prefix+"_DATADOG_APP_KEY")
	creds := Credentials{APIKey: apiKey, AppKey: appKey}

	s.mu.RLock()
	acct, found := s.accounts[strings.ToLower(account)]
	s.mu.RUnlock()
	if found {
		if creds.APIKey == "" {
			creds.APIKey = acct.APIKey
		}
		if creds.AppKey == "" {
			creds.AppKey = acct.AppKey
		}
	}

	if creds.APIKey == "" || creds.AppKey == "" {
		return Credentials{}, false
	}
	return creds, true
}

// EnvPrefix upper-cases account and replaces every character outside
// [A-Z0-9_] with '_', so any account name forms a valid variable name.
func EnvPrefix(account string) string {
	upper := strings.ToUpper(account)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
