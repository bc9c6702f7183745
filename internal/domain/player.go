package domain

import (
	"net/netip"
	"time"
)

// AgentStatus is the lifecycle state of an agent account.
type AgentStatus int

const (
	AgentActive   AgentStatus = 1
	AgentDisabled AgentStatus = 0
)

// Agent represents an agents row. Balance is in base units.
type Agent struct {
	ID         int64       `json:"agent_id"`
	Name       string      `json:"name"`
	HMACKey    string      `json:"-"`
	WalletMode WalletMode  `json:"wallet_mode"`
	Currency   string      `json:"currency"`
	Status     AgentStatus `json:"status"`
	WhiteIPs   []string    `json:"white_ips,omitempty"`
	Balance    int64       `json:"balance"`
	Sequence   int64       `json:"sequence"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Active reports whether the agent may transact.
func (a *Agent) Active() bool { return a.Status == AgentActive }

// AllowsIP reports whether addr is in the whitelist. An empty whitelist allows all.
// Entries may be single addresses or CIDR prefixes.
func (a *Agent) AllowsIP(addr string) bool {
	if len(a.WhiteIPs) == 0 {
		return true
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	for _, entry := range a.WhiteIPs {
		if p, err := netip.ParsePrefix(entry); err == nil {
			if p.Contains(ip) {
				return true
			}
			continue
		}
		if allowed, err := netip.ParseAddr(entry); err == nil && allowed == ip {
			return true
		}
	}
	return false
}

// Player represents a players row joined with its wallet.
type Player struct {
	ID        int64     `json:"player_id"`
	AgentID   int64     `json:"agent_id"`
	Name      string    `json:"name"`
	Account   string    `json:"account"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"`
	Sequence  int64     `json:"sequence"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the wallet key of the player.
func (p *Player) Key() EntityKey { return EntityKey{Kind: EntityPlayer, ID: p.Account} }

// TokenIdentity is the data carried inside a game token.
type TokenIdentity struct {
	AgentID    int64  `json:"agentId"`
	PlayerName string `json:"playerName"`
}
