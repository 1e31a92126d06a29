package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// replayBalance recomputes the balance from the log the way a strict
// decoder would.
func replayBalance(a *Account) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range a.Entries {
		sum = sum.Add(e.SignedAmount())
	}
	return sum
}

func TestBalanceMatchesEntryLog(t *testing.T) {
	a := NewAccount("alice")

	ops := []func() (decimal.Decimal, error){
		func() (decimal.Decimal, error) { return a.Deposit(d("500.00"), "") },
		func() (decimal.Decimal, error) { return a.Withdraw(d("150.50"), "") },
		func() (decimal.Decimal, error) { return a.Deposit(d("0.01"), "tip") },
		func() (decimal.Decimal, error) { return a.DebitForTransfer(d("100"), "bob_ACC1") },
		func() (decimal.Decimal, error) { return a.CreditFromTransfer(d("25"), "carol_ACC2") },
	}
	for i, op := range ops {
		balance, err := op()
		require.NoError(t, err, "op %d", i)
		assert.True(t, balance.Equal(a.Balance))
		assert.True(t, a.Balance.Equal(replayBalance(a)), "op %d: balance diverged from log", i)
		assert.True(t, a.Balance.Cmp(decimal.Zero) >= 0, "op %d: negative balance", i)
	}
	assert.Len(t, a.Entries, len(ops))
}

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	a := NewAccount("alice")

	for _, amount := range []string{"0", "-1", "-0.01"} {
		balance, err := a.Deposit(d(amount), "")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
		assert.True(t, balance.Equal(decimal.Zero))
		assert.Empty(t, a.Entries)
	}
}

func TestWithdrawRejectsNonPositiveAmounts(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Deposit(d("10"), "")
	require.NoError(t, err)

	for _, amount := range []string{"0", "-5"} {
		balance, err := a.Withdraw(d(amount), "")
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %s", amount)
		assert.True(t, balance.Equal(d("10")))
	}
	assert.Len(t, a.Entries, 1)
}

func TestWithdrawInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Deposit(d("100"), "")
	require.NoError(t, err)

	balance, err := a.Withdraw(d("100.01"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, balance.Equal(d("100")))
	assert.Len(t, a.Entries, 1)
}

func TestTransferLegsTagCounterparty(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Deposit(d("200"), "")
	require.NoError(t, err)

	_, err = a.DebitForTransfer(d("50"), "bob_ACC9")
	require.NoError(t, err)
	out := a.Entries[len(a.Entries)-1]
	assert.Equal(t, EntryTransferOut, out.Kind)
	assert.Equal(t, "Transfer to bob_ACC9", out.Note)
	assert.True(t, out.ResultingBalance.Equal(d("150")))

	_, err = a.CreditFromTransfer(d("75"), "bob_ACC9")
	require.NoError(t, err)
	in := a.Entries[len(a.Entries)-1]
	assert.Equal(t, EntryTransferIn, in.Kind)
	assert.Equal(t, "Transfer from bob_ACC9", in.Note)
	assert.True(t, in.ResultingBalance.Equal(d("225")))
}

func TestDebitForTransferChecksBalance(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.DebitForTransfer(d("1"), "bob_ACC1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Empty(t, a.Entries)
}

func TestHistoryNewestFirst(t *testing.T) {
	a := NewAccount("alice")
	for _, amount := range []string{"1", "2", "3", "4"} {
		_, err := a.Deposit(d(amount), "deposit "+amount)
		require.NoError(t, err)
	}

	var amounts []string
	for e := range a.History(3) {
		amounts = append(amounts, e.Amount.String())
	}
	assert.Equal(t, []string{"4", "3", "2"}, amounts)
}

func TestHistoryLimitLargerThanLog(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Deposit(d("1"), "")
	require.NoError(t, err)

	var count int
	for range a.History(100) {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestHistoryIsRestartable(t *testing.T) {
	a := NewAccount("alice")
	for range 5 {
		_, err := a.Deposit(d("1"), "")
		require.NoError(t, err)
	}

	seq := a.History(2)
	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
}

func TestHistoryEmptyLog(t *testing.T) {
	a := NewAccount("alice")
	for range a.History(10) {
		t.Fatal("empty log yielded an entry")
	}
}

func TestHistoryStopsWhenCallerBreaks(t *testing.T) {
	a := NewAccount("alice")
	for range 5 {
		_, err := a.Deposit(d("1"), "")
		require.NoError(t, err)
	}

	seen := 0
	for range a.History(5) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestValidateOwnerID(t *testing.T) {
	for _, owner := range []string{"alice", "alice.smith", "a..b", "USER1234"} {
		assert.NoError(t, ValidateOwnerID(owner), "owner %q", owner)
	}
	for _, owner := range []string{"", "..", "a/b", `a\b`, "a\nb"} {
		assert.ErrorIs(t, ValidateOwnerID(owner), ErrInvalidOwner, "owner %q", owner)
	}
}

func TestCloneDoesNotAliasEntryLog(t *testing.T) {
	a := NewAccount("alice")
	_, err := a.Deposit(d("100"), "")
	require.NoError(t, err)

	c := a.Clone()
	_, err = a.Withdraw(d("40"), "")
	require.NoError(t, err)

	assert.True(t, c.Balance.Equal(d("100")))
	assert.Len(t, c.Entries, 1)
	assert.Len(t, a.Entries, 2)
}

func TestTimestampsNonDecreasing(t *testing.T) {
	a := NewAccount("alice")
	for range 10 {
		_, err := a.Deposit(d("1"), "")
		require.NoError(t, err)
	}
	for i := 1; i < len(a.Entries); i++ {
		assert.False(t, a.Entries[i].CreatedAt.Before(a.Entries[i-1].CreatedAt))
	}
}
