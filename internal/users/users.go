package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "users"

var (
	ErrNotFound          = errors.New("no user found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrUnavailable       = errors.New("database unavailable")
)

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username  string               `bson:"username" json:"username"`
	Password  string               `bson:"password,omitempty" json:"-"` // bcrypt hash
	FirstName string               `bson:"firstName" json:"firstName"`
	LastName  string               `bson:"lastName" json:"lastName"`
	About     string               `bson:"about" json:"about"`
	Following []primitive.ObjectID `bson:"following" json:"following"`
	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Repository is the persistence surface the flows depend on.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FromID(ctx context.Context, id primitive.ObjectID) (*User, error)
	FromUsername(ctx context.Context, username string) (*User, error)
	// FromIDs returns the matching users without their password hashes.
	FromIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error)
	// Update overwrites the profile fields and password of u.ID.
	Update(ctx context.Context, u *User) error
	// Follow adds target to follower.following and follower to target.followers.
	Follow(ctx context.Context, follower, target primitive.ObjectID) error
}

// Store is the MongoDB Repository.
type Store struct {
	db           *mongo.Database
	timeout      time.Duration
	transactions bool
}

// NewStore wraps db, which may be nil when the connection failed at startup.
// With transactions set, Follow commits both writes in one transaction and
// needs a replica set or sharded cluster.
func NewStore(db *mongo.Database, timeout time.Duration, transactions bool) *Store {
	return &Store{db: db, timeout: timeout, transactions: transactions}
}

func (s *Store) collection() (*mongo.Collection, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}
	return s.db.Collection(collection), nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// EnsureIndexes creates the unique username index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create returns ErrDuplicateUsername when the unique index rejects the insert.
func (s *Store) Create(ctx context.Context, u *User) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	if u.Following == nil {
		u.Following = []primitive.ObjectID{}
	}
	if u.Followers == nil {
		u.Followers = []primitive.ObjectID{}
	}

	_, err = coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	log.Info("inserted user with the id " + u.ID.Hex())
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (*User, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user User
	err = coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// FromID returns a user if it finds a matching user with the provided ID
func (s *Store) FromID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FromUsername returns a user if it was able to find someone that matches the username
func (s *Store) FromUsername(ctx context.Context, username string) (*User, error) {
	return s.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *Store) FromIDs(ctx context.Context, ids []primitive.ObjectID) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	opts := options.Find().SetProjection(bson.D{{Key: "password", Value: 0}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	results := []User{}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return results, nil
}

func (s *Store) Update(ctx context.Context, u *User) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	u.UpdatedAt = time.Now().UTC()
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: u.Username},
		{Key: "password", Value: u.Password},
		{Key: "firstName", Value: u.FirstName},
		{Key: "lastName", Value: u.LastName},
		{Key: "about", Value: u.About},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}}}

	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, update)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Follow performs the two $addToSet writes, inside a transaction when enabled.
// Without one, a failure between the writes leaves the pair asymmetric.
func (s *Store) Follow(ctx context.Context, follower, target primitive.ObjectID) error {
	coll, err := s.collection()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	writes := func(ctx context.Context) error {
		if err := addToSet(ctx, coll, follower, "following", target); err != nil {
			return err
		}
		return addToSet(ctx, coll, target, "followers", follower)
	}

	if !s.transactions {
		return writes(ctx)
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, writes(sc)
	})
	return err
}

func addToSet(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, field string, value primitive.ObjectID) error {
	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: value}}}}
	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("add %s to %s.%s: %w", value.Hex(), id.Hex(), field, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
