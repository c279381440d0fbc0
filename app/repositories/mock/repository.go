package mock

import (
	"sort"
	"strings"
	"sync"
	"time"

	"forumhub/app/models"
	"forumhub/app/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NewStore returns a repository set held entirely in memory
func NewStore() *repositories.Store {
	posts := NewPostRepository()
	replies := NewReplyRepository()
	return &repositories.Store{
		Users:    NewUserRepository(),
		Posts:    posts,
		Replies:  replies,
		Likes:    NewLikeRepository(posts, replies),
		Sessions: NewSessionRepository(),
		Devices:  NewDeviceRepository(),
	}
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type UserRepository struct {
	users  map[string]*models.User
	emails map[string]string
	mutex  sync.RWMutex
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[string]*models.User),
		emails: make(map[string]string),
	}
}

func (m *UserRepository) Create(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	email := models.NormalizeEmail(user.Email)
	if _, exists := m.emails[email]; exists {
		return repositories.ErrDuplicate
	}
	if _, exists := m.users[user.ID]; exists {
		return repositories.ErrDuplicate
	}
	c := *user
	m.users[user.ID] = &c
	m.emails[email] = user.ID
	return nil
}

func (m *UserRepository) GetByID(id string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (m *UserRepository) GetByEmail(email string) (*models.User, error) {
	m.mutex.RLock()
	id, exists := m.emails[models.NormalizeEmail(email)]
	m.mutex.RUnlock()
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return m.GetByID(id)
}

func (m *UserRepository) Update(user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.users[user.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	if models.NormalizeEmail(user.Email) != existing.Email {
		return errors.New("email cannot be changed")
	}
	c := *user
	c.Email = existing.Email
	m.users[user.ID] = &c
	return nil
}

func (m *UserRepository) List(limit, offset int) ([]*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return window(users, limit, offset), nil
}

type PostRepository struct {
	posts  map[int]*models.Post
	nextID int
	mutex  sync.RWMutex
}

func NewPostRepository() *PostRepository {
	return &PostRepository{
		posts:  make(map[int]*models.Post),
		nextID: 1,
	}
}

func (m *PostRepository) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.posts = make(map[int]*models.Post)
	m.nextID = 1
}

func (m *PostRepository) Create(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	post.ID = m.nextID
	m.nextID++
	m.posts[post.ID] = stored(post)
	return nil
}

func (m *PostRepository) GetByID(id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	c := *post
	return &c, nil
}

func (m *PostRepository) List(limit, offset int) ([]*models.Post, error) {
	return m.filter(limit, offset, func(*models.Post) bool { return true }), nil
}

func (m *PostRepository) ListByAuthor(authorID string, limit, offset int) ([]*models.Post, error) {
	return m.filter(limit, offset, func(p *models.Post) bool { return p.AuthorID == authorID }), nil
}

func (m *PostRepository) Search(query string, limit, offset int) ([]*models.Post, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return m.filter(limit, offset, func(p *models.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Content), q)
	}), nil
}

// filter returns matching posts newest first, by ID
func (m *PostRepository) filter(limit, offset int, match func(*models.Post) bool) []*models.Post {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var posts []*models.Post
	for id := m.nextID - 1; id >= 1; id-- {
		if post, exists := m.posts[id]; exists && match(post) {
			c := *post
			posts = append(posts, &c)
		}
	}
	return window(posts, limit, offset)
}

func (m *PostRepository) Update(post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.posts[post.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	post.LikeCount = existing.LikeCount
	m.posts[post.ID] = stored(post)
	return nil
}

func (m *PostRepository) Delete(id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func stored(post *models.Post) *models.Post {
	c := *post
	c.Replies = nil
	c.ReplyCount = 0
	return &c
}

type ReplyRepository struct {
	replies map[int]*models.Reply
	nextID  int
	mutex   sync.RWMutex
}

func NewReplyRepository() *ReplyRepository {
	return &ReplyRepository{
		replies: make(map[int]*models.Reply),
		nextID:  1,
	}
}

func (m *ReplyRepository) Create(reply *models.Reply) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	reply.ID = m.nextID
	m.nextID++
	c := *reply
	c.Replies = nil
	m.replies[reply.ID] = &c
	return nil
}

func (m *ReplyRepository) GetByID(postID, id int) (*models.Reply, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	reply, exists := m.replies[id]
	if !exists || reply.PostID != postID {
		return nil, repositories.ErrNotFound
	}
	c := *reply
	return &c, nil
}

func (m *ReplyRepository) ListByPost(postID int) ([]*models.Reply, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var replies []*models.Reply
	for id := 1; id < m.nextID; id++ {
		if reply, exists := m.replies[id]; exists && reply.PostID == postID {
			c := *reply
			replies = append(replies, &c)
		}
	}
	return replies, nil
}

func (m *ReplyRepository) CountByPost(postID int) (int, error) {
	replies, err := m.ListByPost(postID)
	return len(replies), err
}

func (m *ReplyRepository) Delete(postID int, ids ...int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, id := range ids {
		reply, exists := m.replies[id]
		if !exists || reply.PostID != postID {
			return repositories.ErrNotFound
		}
	}
	for _, id := range ids {
		delete(m.replies, id)
	}
	return nil
}

func (m *ReplyRepository) DeleteByPost(postID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, reply := range m.replies {
		if reply.PostID == postID {
			delete(m.replies, id)
		}
	}
	return nil
}

type likeKey struct {
	kind     models.TargetKind
	targetID int
	userID   string
}

// LikeRepository keeps the like counts of the post and reply mocks it wraps
type LikeRepository struct {
	posts   *PostRepository
	replies *ReplyRepository
	likes   map[likeKey]bool
	mutex   sync.Mutex
}

func NewLikeRepository(posts *PostRepository, replies *ReplyRepository) *LikeRepository {
	return &LikeRepository{
		posts:   posts,
		replies: replies,
		likes:   make(map[likeKey]bool),
	}
}

func (m *LikeRepository) Like(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return m.toggle(kind, postID, targetID, userID, true)
}

func (m *LikeRepository) Unlike(kind models.TargetKind, postID, targetID int, userID string) (int, bool, error) {
	return m.toggle(kind, postID, targetID, userID, false)
}

func (m *LikeRepository) toggle(kind models.TargetKind, postID, targetID int, userID string, like bool) (int, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var counter *int
	switch kind {
	case models.TargetPost:
		m.posts.mutex.Lock()
		defer m.posts.mutex.Unlock()
		post, exists := m.posts.posts[targetID]
		if !exists {
			return 0, false, repositories.ErrNotFound
		}
		counter = &post.LikeCount
	case models.TargetReply:
		m.replies.mutex.Lock()
		defer m.replies.mutex.Unlock()
		reply, exists := m.replies.replies[targetID]
		if !exists || reply.PostID != postID {
			return 0, false, repositories.ErrNotFound
		}
		counter = &reply.LikeCount
	default:
		return 0, false, errors.Errorf("unknown like target %q", kind)
	}

	key := likeKey{kind, targetID, userID}
	if m.likes[key] == like {
		return *counter, false, nil
	}
	if like {
		m.likes[key] = true
		*counter++
	} else {
		delete(m.likes, key)
		if *counter > 0 {
			*counter--
		}
	}
	return *counter, true, nil
}

func (m *LikeRepository) HasLiked(kind models.TargetKind, targetID int, userID string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.likes[likeKey{kind, targetID, userID}], nil
}

func (m *LikeRepository) DeleteByTarget(kind models.TargetKind, targetIDs ...int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for key := range m.likes {
		for _, id := range targetIDs {
			if key.kind == kind && key.targetID == id {
				delete(m.likes, key)
			}
		}
	}
	return nil
}

type SessionRepository struct {
	revoked map[string]time.Time
	mutex   sync.Mutex
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{revoked: make(map[string]time.Time)}
}

func (m *SessionRepository) Revoke(tokenID string, until time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if time.Until(until) > 0 {
		m.revoked[tokenID] = until
	}
	return nil
}

func (m *SessionRepository) IsRevoked(tokenID string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	until, exists := m.revoked[tokenID]
	return exists && time.Now().Before(until), nil
}

type DeviceRepository struct {
	devices map[string]map[string]*models.Device
	mutex   sync.Mutex
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{devices: make(map[string]map[string]*models.Device)}
}

func (m *DeviceRepository) Register(device *models.Device) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	if m.devices[device.UserID] == nil {
		m.devices[device.UserID] = make(map[string]*models.Device)
	}
	c := *device
	m.devices[device.UserID][device.Token] = &c
	return nil
}

func (m *DeviceRepository) ListByUser(userID string) ([]*models.Device, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var devices []*models.Device
	for _, d := range m.devices[userID] {
		c := *d
		devices = append(devices, &c)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Token < devices[j].Token })
	return devices, nil
}

func (m *DeviceRepository) Delete(userID, token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.devices[userID][token]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.devices[userID], token)
	return nil
}
