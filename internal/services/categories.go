package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"pocketops/internal/amqp"
	"pocketops/internal/categories"
	"pocketops/internal/core"
	"pocketops/internal/log"
)

const defaultEmoji = "✨"

// Categories returns the merged category catalog for the current state.
func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	st, err := s.store.AppState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load app state: %w", err)
	}
	return categories.ForState(st), nil
}

// CategoryHint suggests a category for a merchant: the category last used
// with it, else the first matching name rule.
func (s *LedgerService) CategoryHint(ctx context.Context, merchant string) (string, error) {
	key := core.MerchantKeyFrom(merchant)
	if key == "" {
		return core.FallbackCategory.Key, nil
	}
	remembered, ok, err := s.store.MerchantCategory(ctx, key)
	if err != nil {
		return "", fmt.Errorf("merchant memory: %w", err)
	}
	if ok && remembered != "" {
		return remembered, nil
	}
	return categories.Hint(merchant), nil
}

// AddCategory adds a user category keyed by the slug of name, suffixed
// _2, _3, ... while the key is taken.
func (s *LedgerService) AddCategory(ctx context.Context, name, emoji string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	base := categories.Slugify(name)
	if base == "" {
		return core.Category{}, fmt.Errorf("%w: use letters or numbers in the category name", core.ErrEmptyName)
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = defaultEmoji
	}

	var added core.Category
	err := s.updateState(ctx, func(st *core.AppState) error {
		visible := categories.ForState(*st)
		key := categories.UniqueKey(base, func(k string) bool {
			_, taken := categories.Find(visible, k)
			return taken
		})
		added = core.Category{Key: key, Label: name, Emoji: emoji}
		st.CustomCategories = append(st.CustomCategories, added)
		st.DeletedCategoryKeys = slices.DeleteFunc(slices.Clone(st.DeletedCategoryKeys), func(k string) bool { return k == key })
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category added", log.FieldCategory, added.Key)
	s.changed(ctx, amqp.KindCategory, amqp.OpCreate, added.Key)
	return added, nil
}

// RenameCategory stores a label and emoji override for an existing category.
func (s *LedgerService) RenameCategory(ctx context.Context, key, name, emoji string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = defaultEmoji
	}

	err := s.updateState(ctx, func(st *core.AppState) error {
		if _, ok := categories.Find(categories.ForState(*st), key); !ok {
			return fmt.Errorf("%w: %s", core.ErrCategoryMissing, key)
		}
		overrides := make(map[string]core.CategoryOverride, len(st.CategoryOverrides)+1)
		for k, v := range st.CategoryOverrides {
			overrides[k] = v
		}
		overrides[key] = core.CategoryOverride{Label: name, Emoji: emoji}
		st.CategoryOverrides = overrides
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	s.changed(ctx, amqp.KindCategory, amqp.OpUpdate, key)
	return core.Category{Key: key, Label: name, Emoji: emoji}, nil
}

// DeleteCategory hides a category, drops its budget and moves its
// transactions and bills to the first remaining category, which is returned.
func (s *LedgerService) DeleteCategory(ctx context.Context, key string) (string, error) {
	var remap string
	err := s.updateState(ctx, func(st *core.AppState) error {
		if _, ok := categories.Find(categories.ForState(*st), key); !ok {
			return fmt.Errorf("%w: %s", core.ErrCategoryMissing, key)
		}
		st.CustomCategories = slices.DeleteFunc(slices.Clone(st.CustomCategories), func(c core.Category) bool { return c.Key == key })
		st.RecentCategories = slices.DeleteFunc(slices.Clone(st.RecentCategories), func(k string) bool { return k == key })
		if !slices.Contains(st.DeletedCategoryKeys, key) {
			st.DeletedCategoryKeys = append(st.DeletedCategoryKeys, key)
		}
		if _, ok := st.CategoryOverrides[key]; ok {
			overrides := make(map[string]core.CategoryOverride, len(st.CategoryOverrides))
			for k, v := range st.CategoryOverrides {
				if k != key {
					overrides[k] = v
				}
			}
			st.CategoryOverrides = overrides
		}
		remap = categories.FirstKey(categories.ForState(*st))
		return nil
	})
	if err != nil {
		return "", err
	}

	if err := s.store.DeleteBudget(ctx, key); err != nil {
		return "", fmt.Errorf("delete budget: %w", err)
	}

	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return "", fmt.Errorf("list transactions: %w", err)
	}
	moved := 0
	for _, tx := range txs {
		if tx.Category != key {
			continue
		}
		tx.Category = remap
		if err := s.store.AddTransaction(ctx, tx); err != nil {
			return "", fmt.Errorf("remap transaction %s: %w", tx.ID, err)
		}
		moved++
	}

	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return "", fmt.Errorf("list bills: %w", err)
	}
	for _, b := range bills {
		if b.Category != key {
			continue
		}
		b.Category = remap
		if err := s.store.SaveBill(ctx, b); err != nil {
			return "", fmt.Errorf("remap bill %s: %w", b.ID, err)
		}
		moved++
	}

	slog.InfoContext(ctx, "Category deleted",
		log.FieldCategory, key,
		"remapped_to", remap,
		log.FieldCount, moved)
	s.changed(ctx, amqp.KindCategory, amqp.OpDelete, key)
	return remap, nil
}
