package services

import "testing"

func TestBalanceDeltas(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, NopNotifier{})

	tests := []struct {
		name       string
		coins      int
		energy     int
		apply      func(userID int) error
		wantCoins  int
		wantEnergy int
	}{
		{
			name: "add coins", coins: 10,
			apply:     func(id int) error { return svc.AddCoin(id, 5) },
			wantCoins: 15,
		},
		{
			name: "debit clamps at zero", coins: 3,
			apply:     func(id int) error { return svc.AddCoin(id, -10) },
			wantCoins: 0,
		},
		{
			name: "add energy", energy: 5,
			apply:      func(id int) error { return svc.AddEnergy(id, 20) },
			wantEnergy: 25,
		},
		{
			name: "spend energy", energy: 20,
			apply:      func(id int) error { return svc.SpendEnergy(id, 8) },
			wantEnergy: 12,
		},
		{
			name: "overspend clamps at zero", energy: 20,
			apply:      func(id int) error { return svc.SpendEnergy(id, 999) },
			wantEnergy: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := seedUser(t, db, tt.coins, tt.energy)

			if err := tt.apply(userID); err != nil {
				t.Fatalf("balance op failed: %v", err)
			}

			user := getUser(t, db, userID)
			if user.Coins != tt.wantCoins {
				t.Errorf("coins = %d, want %d", user.Coins, tt.wantCoins)
			}
			if user.Energy != tt.wantEnergy {
				t.Errorf("energy = %d, want %d", user.Energy, tt.wantEnergy)
			}
		})
	}
}

func TestBalanceMutationNotifies(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewUserService(db, notifier)
	userID := seedUser(t, db, 0, 20)

	if err := svc.SpendEnergy(userID, 5); err != nil {
		t.Fatalf("SpendEnergy failed: %v", err)
	}

	if len(notifier.calls) != 1 || notifier.calls[0] != userID {
		t.Errorf("notifications = %v, want one for user %d", notifier.calls, userID)
	}
}

func TestStatBonusGuard(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, NopNotifier{})
	userID := seedUser(t, db, 0, 0)

	// No attempts yet
	received, err := svc.HasReceivedStatBonus(userID, 1)
	if err != nil {
		t.Fatalf("HasReceivedStatBonus failed: %v", err)
	}
	if received {
		t.Fatal("bonus reported received with no attempts")
	}

	// Marking with no attempt on record is a silent no-op
	if err := svc.MarkStatBonusAsGiven(userID, 1); err != nil {
		t.Fatalf("mark without attempts failed: %v", err)
	}

	if err := svc.SaveQuizAndScore(userID, 1, 80); err != nil {
		t.Fatalf("SaveQuizAndScore failed: %v", err)
	}
	received, _ = svc.HasReceivedStatBonus(userID, 1)
	if received {
		t.Fatal("bonus reported received before marking")
	}

	if err := svc.MarkStatBonusAsGiven(userID, 1); err != nil {
		t.Fatalf("MarkStatBonusAsGiven failed: %v", err)
	}
	received, _ = svc.HasReceivedStatBonus(userID, 1)
	if !received {
		t.Error("bonus not reported received after marking")
	}

	// A different quiz has its own guard
	received, _ = svc.HasReceivedStatBonus(userID, 2)
	if received {
		t.Error("guard leaked across quizzes")
	}
}

func TestSaveQuizAndScoreAppendsHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, NopNotifier{})
	userID := seedUser(t, db, 0, 0)

	for _, score := range []int{40, 70, 100} {
		if err := svc.SaveQuizAndScore(userID, 3, score); err != nil {
			t.Fatalf("SaveQuizAndScore failed: %v", err)
		}
	}

	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM user_quiz_scores WHERE user_id = ? AND quiz_id = 3`, userID); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("history has %d rows, want 3", count)
	}
}

func TestGrantItem(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, 1, "Food", 5, 10)
	seedItem(t, db, 2, "Collectible", 30, 0)
	svc := NewUserService(db, NopNotifier{})
	userID := seedUser(t, db, 0, 0)

	// Food stacks
	if err := svc.GrantItem(userID, 1, 2); err != nil {
		t.Fatalf("GrantItem failed: %v", err)
	}
	if err := svc.GrantItem(userID, 1, 3); err != nil {
		t.Fatalf("GrantItem failed: %v", err)
	}

	// Collectibles cap at one regardless of grant size
	if err := svc.GrantItem(userID, 2, 5); err != nil {
		t.Fatalf("GrantItem failed: %v", err)
	}
	if err := svc.GrantItem(userID, 2, 1); err != nil {
		t.Fatalf("GrantItem failed: %v", err)
	}

	// Unknown item is a silent no-op
	if err := svc.GrantItem(userID, 99, 1); err != nil {
		t.Fatalf("grant of unknown item must no-op, got: %v", err)
	}

	items, err := svc.GetUserItems(userID)
	if err != nil {
		t.Fatalf("GetUserItems failed: %v", err)
	}

	quantities := make(map[int]int)
	for _, item := range items {
		quantities[item.ItemID] = item.Quantity
	}
	if quantities[1] != 5 {
		t.Errorf("food quantity = %d, want 5", quantities[1])
	}
	if quantities[2] != 1 {
		t.Errorf("collectible quantity = %d, want 1", quantities[2])
	}
	if _, ok := quantities[99]; ok {
		t.Error("unknown item appeared in inventory")
	}
}

func TestConsumeItem(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, 1, "Food", 5, 10)
	svc := NewUserService(db, NopNotifier{})
	userID := seedUser(t, db, 0, 5)

	grantItemRow(t, db, userID, 1, 1)

	consumed, err := svc.ConsumeItem(userID, 1)
	if err != nil {
		t.Fatalf("ConsumeItem failed: %v", err)
	}
	if !consumed {
		t.Fatal("owned item not consumed")
	}
	if got := getUser(t, db, userID).Energy; got != 15 {
		t.Errorf("energy after eating = %d, want 15", got)
	}

	// Quantity hit zero: further consumption is refused
	consumed, err = svc.ConsumeItem(userID, 1)
	if err != nil {
		t.Fatalf("ConsumeItem failed: %v", err)
	}
	if consumed {
		t.Error("consumed an item with zero quantity")
	}
	if got := getUser(t, db, userID).Energy; got != 15 {
		t.Errorf("refused consumption changed energy to %d", got)
	}
}

func TestPurchaseItem(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, 1, "Collectible", 30, 0)
	svc := NewUserService(db, NopNotifier{})

	t.Run("sufficient coins", func(t *testing.T) {
		userID := seedUser(t, db, 50, 0)

		purchased, err := svc.PurchaseItem(userID, 1)
		if err != nil {
			t.Fatalf("PurchaseItem failed: %v", err)
		}
		if !purchased {
			t.Fatal("purchase refused with sufficient coins")
		}
		if got := getUser(t, db, userID).Coins; got != 20 {
			t.Errorf("coins after purchase = %d, want 20", got)
		}
	})

	t.Run("insufficient coins", func(t *testing.T) {
		userID := seedUser(t, db, 10, 0)

		purchased, err := svc.PurchaseItem(userID, 1)
		if err != nil {
			t.Fatalf("PurchaseItem failed: %v", err)
		}
		if purchased {
			t.Fatal("purchase allowed with insufficient coins")
		}
		if got := getUser(t, db, userID).Coins; got != 10 {
			t.Errorf("refused purchase changed coins to %d", got)
		}

		items, _ := svc.GetUserItems(userID)
		if len(items) != 0 {
			t.Error("refused purchase granted the item")
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		userID := seedUser(t, db, 50, 0)

		purchased, err := svc.PurchaseItem(userID, 99)
		if err != nil {
			t.Fatalf("purchase of unknown item must no-op, got: %v", err)
		}
		if purchased {
			t.Error("purchase of unknown item reported success")
		}
	})
}
