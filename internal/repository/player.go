package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/walletcenter/internal/domain"
	"github.com/attaboy/walletcenter/internal/infra"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository {
	return &playerRepo{}
}

func (r *playerRepo) TouchLastLogin(ctx context.Context, db DBTX, account string) (int64, error) {
	tag, err := db.Exec(ctx, `UPDATE players SET last_login = now() WHERE account = $1`, account)
	if err != nil {
		return 0, fmt.Errorf("touch last login: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Create inserts the players row and its wallet. The wallet currency is copied
// from the owning agent inside the same statement.
func (r *playerRepo) Create(ctx context.Context, tx pgx.Tx, player *domain.Player) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO players (agent_id, name, account, last_login)
		VALUES ($1, $2, $3, now())
		RETURNING player_id, last_login, created_at`,
		player.AgentID, player.Name, player.Account,
	).Scan(&player.ID, &player.LastLogin, &player.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO player_wallets (account, currency, balance, sequence)
		SELECT $1, a.currency, 0, 0 FROM agents a WHERE a.agent_id = $2
		RETURNING currency`,
		player.Account, player.AgentID,
	).Scan(&player.Currency)
	if err != nil {
		return fmt.Errorf("insert player wallet: %w", err)
	}
	player.Balance = 0
	player.Sequence = 0
	return nil
}

func (r *playerRepo) FindByAccount(ctx context.Context, db DBTX, account string) (*domain.Player, error) {
	row := db.QueryRow(ctx, `
		SELECT p.player_id, p.agent_id, p.name, p.account, w.currency, w.balance, w.sequence, p.last_login, p.created_at
		FROM players p
		JOIN player_wallets w ON w.account = p.account
		WHERE p.account = $1`, account)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var balNum pgtype.Numeric
	err := row.Scan(&p.ID, &p.AgentID, &p.Name, &p.Account, &p.Currency, &balNum, &p.Sequence, &p.LastLogin, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}

	p.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &p, nil
}
