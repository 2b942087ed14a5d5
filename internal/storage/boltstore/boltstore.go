// Package boltstore keeps the record store in a single bbolt file with JSON
// values, one bucket per entity kind.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"household/internal/core"
	"household/internal/storage"
)

// Bucket names.
const (
	BucketUsers        = "users"
	BucketUserEmails   = "user_emails"
	BucketTasks        = "tasks"
	BucketGoals        = "goals"
	BucketTransactions = "transactions"
)

type Store struct {
	db *bolt.DB
}

var _ storage.Store = (*Store)(nil)

// userRecord persists the password hash that core.User hides from JSON.
type userRecord struct {
	core.User
	PasswordHash string `json:"passwordHash"`
}

// Open creates or opens the database at path and initializes buckets.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketUsers, BucketUserEmails, BucketTasks, BucketGoals, BucketTransactions} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

func put(tx *bolt.Tx, bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", bucket, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(key), data)
}

func get[T any](db *bolt.DB, bucket, key string) (T, error) {
	var v T
	err := db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucket)).Get([]byte(key))
		if data == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(data, &v)
	})
	return v, err
}

func list[T any](db *bolt.DB, bucket string, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(_, data []byte) error {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return fmt.Errorf("decode %s: %w", bucket, err)
			}
			if keep(v) {
				out = append(out, v)
			}
			return nil
		})
	})
	return out, err
}

// replace overwrites an existing key and fails with ErrNotFound otherwise.
func replace(db *bolt.DB, bucket, key string, value any) error {
	return db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucket)).Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return put(tx, bucket, key, value)
	})
}

func del(db *bolt.DB, bucket, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	email := strings.ToLower(u.Email)
	u.Email = email
	return s.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket([]byte(BucketUserEmails))
		if emails.Get([]byte(email)) != nil {
			return storage.ErrEmailTaken
		}
		if err := emails.Put([]byte(email), []byte(u.ID)); err != nil {
			return err
		}
		return put(tx, BucketUsers, u.ID, userRecord{User: u, PasswordHash: u.PasswordHash})
	})
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	rec, err := get[userRecord](s.db, BucketUsers, id)
	if err != nil {
		return core.User{}, err
	}
	rec.User.PasswordHash = rec.PasswordHash
	return rec.User, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketUserEmails)).Get([]byte(strings.ToLower(email)))
		if v == nil {
			return storage.ErrNotFound
		}
		id = string(v)
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	recs, err := list(s.db, BucketUsers, func(userRecord) bool { return true })
	if err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(recs))
	for _, r := range recs {
		r.User.PasswordHash = r.PasswordHash
		users = append(users, r.User)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *Store) CreateTasks(_ context.Context, tasks ...core.Task) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, t := range tasks {
			if err := put(tx, BucketTasks, t.ID, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetTask(_ context.Context, id string) (core.Task, error) {
	return get[core.Task](s.db, BucketTasks, id)
}

func (s *Store) ListTasks(_ context.Context, f storage.TaskFilter) ([]core.Task, error) {
	tasks, err := list(s.db, BucketTasks, f.Matches)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	if f.Limit > 0 && len(tasks) > f.Limit {
		tasks = tasks[:f.Limit]
	}
	return tasks, nil
}

func (s *Store) UpdateTask(_ context.Context, t core.Task) error {
	return replace(s.db, BucketTasks, t.ID, t)
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	return del(s.db, BucketTasks, id)
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, BucketGoals, g.ID, g)
	})
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	return get[core.Goal](s.db, BucketGoals, id)
}

func (s *Store) ListGoals(_ context.Context, f storage.GoalFilter) ([]core.Goal, error) {
	goals, err := list(s.db, BucketGoals, f.Matches)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].CreatedAt.After(goals[j].CreatedAt) })
	return goals, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	return replace(s.db, BucketGoals, g.ID, g)
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	return del(s.db, BucketGoals, id)
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, BucketTransactions, t.ID, t)
	})
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	return get[core.Transaction](s.db, BucketTransactions, id)
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	txs, err := list(s.db, BucketTransactions, f.Matches)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.After(txs[j].Date) })
	return txs, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	return replace(s.db, BucketTransactions, t.ID, t)
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	return del(s.db, BucketTransactions, id)
}

func (s *Store) FillResponsavel(_ context.Context, userID, responsavel string) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		var pending []core.Transaction
		err := tx.Bucket([]byte(BucketTransactions)).ForEach(func(_, data []byte) error {
			var t core.Transaction
			if err := json.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("decode transaction: %w", err)
			}
			if t.UserID == userID && t.Responsavel == nil {
				pending = append(pending, t)
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Mutating during ForEach is not allowed, so writes happen afterwards.
		for _, t := range pending {
			r := responsavel
			t.Responsavel = &r
			if err := put(tx, BucketTransactions, t.ID, t); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
