// Package codec serializes one account to and from its durable record.
//
// The record is line oriented: the account identity, the owner identity,
// the balance, and the entry count, each on its own line, followed by one
// pipe-delimited line per ledger entry:
//
//	id|kind|amount|note|timestamp|resulting_balance
//
// Field order and delimiter are fixed. The note field is the only one that
// may contain arbitrary text, so it is escaped: backslash as `\\`, the
// pipe as `\p`, and newline as `\n`. Encode and Decode are mutual
// inverses for every valid account state, timestamps included.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walletsys/wallet-ledger/internal/wallet"
)

const headerLines = 4

type decodeConfig struct {
	strict bool
}

// DecodeOption adjusts Decode behavior.
type DecodeOption func(*decodeConfig)

// Strict makes Decode replay the entry log and fail with ErrCorruptRecord
// when any stored resulting balance, or the stored account balance, does
// not match the replayed value. The default trusts the stored snapshots.
func Strict() DecodeOption {
	return func(c *decodeConfig) { c.strict = true }
}

// Encode renders the account's full state as a durable record.
func Encode(a *wallet.Account) []byte {
	var b strings.Builder
	b.WriteString(a.AccountID)
	b.WriteByte('\n')
	b.WriteString(a.OwnerID)
	b.WriteByte('\n')
	b.WriteString(a.Balance.String())
	b.WriteByte('\n')
	b.WriteString(strconv.Itoa(len(a.Entries)))
	b.WriteByte('\n')
	for _, e := range a.Entries {
		b.WriteString(e.ID)
		b.WriteByte('|')
		b.WriteString(string(e.Kind))
		b.WriteByte('|')
		b.WriteString(e.Amount.String())
		b.WriteByte('|')
		b.WriteString(escapeNote(e.Note))
		b.WriteByte('|')
		b.WriteString(e.CreatedAt.Format(time.RFC3339Nano))
		b.WriteByte('|')
		b.WriteString(e.ResultingBalance.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Decode reconstructs an account from its durable record. It returns an
// error wrapping wallet.ErrCorruptRecord when the record is structurally
// malformed, the declared entry count does not match the entries present,
// or any numeric field fails to parse.
func Decode(data []byte, opts ...DecodeOption) (*wallet.Account, error) {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	lines := strings.Split(string(data), "\n")
	// A trailing newline produces one empty trailing element.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	if len(lines) < headerLines {
		return nil, corrupt("record has %d lines, want at least %d", len(lines), headerLines)
	}

	a := &wallet.Account{AccountID: lines[0], OwnerID: lines[1]}
	if a.AccountID == "" {
		return nil, corrupt("missing account id")
	}
	if a.OwnerID == "" {
		return nil, corrupt("missing owner id")
	}

	balance, err := decimal.NewFromString(lines[2])
	if err != nil {
		return nil, corrupt("balance %q: %v", lines[2], err)
	}
	a.Balance = balance

	count, err := strconv.Atoi(lines[3])
	if err != nil || count < 0 {
		return nil, corrupt("entry count %q", lines[3])
	}
	if got := len(lines) - headerLines; got != count {
		return nil, corrupt("declared %d entries, found %d", count, got)
	}

	a.Entries = make([]wallet.LedgerEntry, 0, count)
	for i, line := range lines[headerLines:] {
		entry, err := decodeEntry(line)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		a.Entries = append(a.Entries, entry)
	}

	if cfg.strict {
		if err := replay(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func decodeEntry(line string) (wallet.LedgerEntry, error) {
	fields := strings.Split(line, "|")
	if len(fields) != 6 {
		return wallet.LedgerEntry{}, corrupt("%d fields, want 6", len(fields))
	}

	amount, err := decimal.NewFromString(fields[2])
	if err != nil {
		return wallet.LedgerEntry{}, corrupt("amount %q: %v", fields[2], err)
	}
	note, err := unescapeNote(fields[3])
	if err != nil {
		return wallet.LedgerEntry{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[4])
	if err != nil {
		return wallet.LedgerEntry{}, corrupt("timestamp %q: %v", fields[4], err)
	}
	resulting, err := decimal.NewFromString(fields[5])
	if err != nil {
		return wallet.LedgerEntry{}, corrupt("resulting balance %q: %v", fields[5], err)
	}

	return wallet.LedgerEntry{
		ID:               fields[0],
		Kind:             wallet.EntryKind(fields[1]),
		Amount:           amount,
		Note:             note,
		CreatedAt:        createdAt,
		ResultingBalance: resulting,
	}, nil
}

// replay recomputes the balance from the entry log and compares it against
// every stored snapshot and the stored account balance.
func replay(a *wallet.Account) error {
	running := decimal.Zero
	for i, e := range a.Entries {
		if e.Amount.Cmp(decimal.Zero) <= 0 {
			return corrupt("entry %d: non-positive amount %s", i, e.Amount)
		}
		switch e.Kind {
		case wallet.EntryDeposit, wallet.EntryWithdrawal, wallet.EntryTransferOut, wallet.EntryTransferIn:
		default:
			return corrupt("entry %d: unknown kind %q", i, e.Kind)
		}
		running = running.Add(e.SignedAmount())
		if running.Cmp(decimal.Zero) < 0 {
			return corrupt("entry %d: replay drives balance negative (%s)", i, running)
		}
		if !running.Equal(e.ResultingBalance) {
			return corrupt("entry %d: stored balance %s, replay gives %s", i, e.ResultingBalance, running)
		}
	}
	if !running.Equal(a.Balance) {
		return corrupt("stored balance %s, replay gives %s", a.Balance, running)
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", wallet.ErrCorruptRecord, fmt.Sprintf(format, args...))
}

func escapeNote(note string) string {
	if !strings.ContainsAny(note, "\\|\n") {
		return note
	}
	var b strings.Builder
	for i := 0; i < len(note); i++ {
		switch note[i] {
		case '\\':
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\p`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(note[i])
		}
	}
	return b.String()
}

func unescapeNote(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i == len(s) {
			return "", corrupt("note ends with dangling escape")
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'p':
			b.WriteByte('|')
		case 'n':
			b.WriteByte('\n')
		default:
			return "", corrupt("note has unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
