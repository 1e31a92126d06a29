package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletsys/wallet-ledger/internal/wallet"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleAccount(t *testing.T) *wallet.Account {
	t.Helper()
	a := wallet.NewAccount("alice")
	_, err := a.Deposit(d("500.00"), "salary")
	require.NoError(t, err)
	_, err = a.Withdraw(d("150.50"), "rent")
	require.NoError(t, err)
	_, err = a.DebitForTransfer(d("100.00"), "bob_ACC42")
	require.NoError(t, err)
	return a
}

func TestRoundTrip(t *testing.T) {
	a := sampleAccount(t)

	encoded := Encode(a)
	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, a.AccountID, decoded.AccountID)
	assert.Equal(t, a.OwnerID, decoded.OwnerID)
	assert.True(t, a.Balance.Equal(decoded.Balance))
	require.Len(t, decoded.Entries, len(a.Entries))
	for i, want := range a.Entries {
		got := decoded.Entries[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Kind, got.Kind)
		assert.True(t, want.Amount.Equal(got.Amount))
		assert.Equal(t, want.Note, got.Note)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, want.ResultingBalance.Equal(got.ResultingBalance))
	}

	// Encoding the decoded account reproduces the record byte for byte.
	assert.Equal(t, string(encoded), string(Encode(decoded)))
}

func TestRoundTripEmptyLog(t *testing.T) {
	a := wallet.NewAccount("bob")

	decoded, err := Decode(Encode(a))
	require.NoError(t, err)
	assert.Equal(t, a.AccountID, decoded.AccountID)
	assert.True(t, decoded.Balance.Equal(decimal.Zero))
	assert.Empty(t, decoded.Entries)
}

func TestRoundTripNoteWithDelimiters(t *testing.T) {
	a := wallet.NewAccount("alice")
	_, err := a.Deposit(d("10"), `pipes | and \ slashes`+"\nand a newline")
	require.NoError(t, err)

	encoded := Encode(a)
	// The raw note must never leak an unescaped delimiter into the record.
	for _, line := range strings.Split(string(encoded), "\n")[4:] {
		if line != "" {
			assert.Equal(t, 5, strings.Count(line, "|"))
		}
	}

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, a.Entries[0].Note, decoded.Entries[0].Note)
	assert.Equal(t, string(encoded), string(Encode(decoded)))
}

func validRecord() string {
	return strings.Join([]string{
		"alice_ACC1",
		"alice",
		"350",
		"2",
		"TXN1|DEPOSIT|500|salary|2024-03-01T10:00:00Z|500",
		"TXN2|WITHDRAWAL|150|rent|2024-03-01T11:00:00Z|350",
		"",
	}, "\n")
}

func TestDecodeValidRecord(t *testing.T) {
	a, err := Decode([]byte(validRecord()))
	require.NoError(t, err)
	assert.Equal(t, "alice_ACC1", a.AccountID)
	assert.Equal(t, "alice", a.OwnerID)
	assert.True(t, a.Balance.Equal(d("350")))
	require.Len(t, a.Entries, 2)
	assert.Equal(t, wallet.EntryWithdrawal, a.Entries[1].Kind)
	assert.True(t, a.Entries[1].CreatedAt.Equal(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)))
}

func TestDecodeCorruptRecords(t *testing.T) {
	cases := map[string]string{
		"empty":               "",
		"truncated header":    "alice_ACC1\nalice\n",
		"missing account id":  "\nalice\n0\n0\n",
		"missing owner id":    "alice_ACC1\n\n0\n0\n",
		"bad balance":         "alice_ACC1\nalice\nnot-a-number\n0\n",
		"bad count":           "alice_ACC1\nalice\n0\nmany\n",
		"negative count":      "alice_ACC1\nalice\n0\n-1\n",
		"count too high":      "alice_ACC1\nalice\n0\n2\nTXN1|DEPOSIT|5|x|2024-03-01T10:00:00Z|5\n",
		"count too low":       "alice_ACC1\nalice\n0\n0\nTXN1|DEPOSIT|5|x|2024-03-01T10:00:00Z|5\n",
		"short entry":         "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5\n",
		"extra field":         "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5|x|2024-03-01T10:00:00Z|5|extra\n",
		"bad amount":          "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|abc|x|2024-03-01T10:00:00Z|5\n",
		"bad timestamp":       "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5|x|yesterday|5\n",
		"bad result balance":  "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5|x|2024-03-01T10:00:00Z|oops\n",
		"dangling escape":     "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5|x\\|2024-03-01T10:00:00Z|5\n",
		"unknown escape":      "alice_ACC1\nalice\n5\n1\nTXN1|DEPOSIT|5|x\\qy|2024-03-01T10:00:00Z|5\n",
	}
	for name, record := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(record))
			assert.ErrorIs(t, err, wallet.ErrCorruptRecord)
		})
	}
}

func TestStrictAcceptsConsistentRecord(t *testing.T) {
	_, err := Decode([]byte(validRecord()), Strict())
	assert.NoError(t, err)

	a := sampleAccount(t)
	_, err = Decode(Encode(a), Strict())
	assert.NoError(t, err)
}

func TestStrictRejectsDivergentSnapshots(t *testing.T) {
	tampered := strings.Replace(validRecord(), "|2024-03-01T11:00:00Z|350", "|2024-03-01T11:00:00Z|999", 1)

	// Default decode trusts the stored snapshots.
	_, err := Decode([]byte(tampered))
	require.NoError(t, err)

	_, err = Decode([]byte(tampered), Strict())
	assert.ErrorIs(t, err, wallet.ErrCorruptRecord)
}

func TestStrictRejectsDivergentBalance(t *testing.T) {
	tampered := strings.Replace(validRecord(), "alice\n350", "alice\n351", 1)

	_, err := Decode([]byte(tampered), Strict())
	assert.ErrorIs(t, err, wallet.ErrCorruptRecord)
}

func TestStrictRejectsNegativeReplay(t *testing.T) {
	record := strings.Join([]string{
		"alice_ACC1",
		"alice",
		"-50",
		"1",
		"TXN1|WITHDRAWAL|50|rent|2024-03-01T10:00:00Z|-50",
		"",
	}, "\n")

	_, err := Decode([]byte(record), Strict())
	assert.ErrorIs(t, err, wallet.ErrCorruptRecord)
}

func TestStrictRejectsUnknownKind(t *testing.T) {
	record := strings.Join([]string{
		"alice_ACC1",
		"alice",
		"50",
		"1",
		"TXN1|BONUS|50|x|2024-03-01T10:00:00Z|50",
		"",
	}, "\n")

	_, err := Decode([]byte(record), Strict())
	assert.ErrorIs(t, err, wallet.ErrCorruptRecord)
}
