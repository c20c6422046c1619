package models

import (
	"fmt"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Course operations

// CreateCourse inserts a new course
func (db *Database) CreateCourse(course *Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	return db.store.Insert(bolthold.NextSequence(), course)
}

// UpdateCourse updates an existing course
func (db *Database) UpdateCourse(course *Course) error {
	course.UpdatedAt = time.Now().UTC()
	return db.store.Update(course.ID, course)
}

// GetCourseByID retrieves a course by ID
func (db *Database) GetCourseByID(id uint64) (*Course, error) {
	var course Course
	if err := db.store.Get(id, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetAllCourses retrieves all courses
func (db *Database) GetAllCourses() ([]*Course, error) {
	var courses []*Course
	err := db.store.Find(&courses, nil)
	return courses, err
}

// DeleteCourse deletes a course along with its episodes and link batches
func (db *Database) DeleteCourse(id uint64) error {
	episodes, err := db.GetEpisodesByCourse(id)
	if err != nil {
		return err
	}
	for _, ep := range episodes {
		if err := db.store.Delete(ep.ID, &Episode{}); err != nil {
			return err
		}
	}

	var batches []*LinkBatch
	if err := db.store.Find(&batches, bolthold.Where("CourseID").Eq(id)); err != nil {
		return err
	}
	for _, batch := range batches {
		if err := db.store.Delete(batch.ID, &LinkBatch{}); err != nil {
			return err
		}
	}

	return db.store.Delete(id, &Course{})
}

// Episode operations

// CreateEpisode inserts a new episode. The ID field is assigned from the
// store sequence.
func (db *Database) CreateEpisode(episode *Episode) error {
	now := time.Now().UTC()
	episode.CreatedAt = now
	episode.UpdatedAt = now
	return db.store.Insert(bolthold.NextSequence(), episode)
}

// UpdateEpisode updates an existing episode
func (db *Database) UpdateEpisode(episode *Episode) error {
	episode.UpdatedAt = time.Now().UTC()
	return db.store.Update(episode.ID, episode)
}

// GetEpisodeByID retrieves an episode by ID
func (db *Database) GetEpisodeByID(id uint64) (*Episode, error) {
	var episode Episode
	if err := db.store.Get(id, &episode); err != nil {
		return nil, err
	}
	return &episode, nil
}

// GetEpisodesByCourse retrieves all episodes of a course
func (db *Database) GetEpisodesByCourse(courseID uint64) ([]*Episode, error) {
	var episodes []*Episode
	err := db.store.Find(&episodes, bolthold.Where("CourseID").Eq(courseID))
	return episodes, err
}

// DeleteEpisode deletes an episode by ID
func (db *Database) DeleteEpisode(id uint64) error {
	return db.store.Delete(id, &Episode{})
}

// LinkBatch operations

// CreateLinkBatch inserts a new link batch record
func (db *Database) CreateLinkBatch(batch *LinkBatch) error {
	batch.CreatedAt = time.Now().UTC()
	return db.store.Insert(bolthold.NextSequence(), batch)
}

// GetLinkBatchesByCourse retrieves all link batches for a course
func (db *Database) GetLinkBatchesByCourse(courseID uint64) ([]*LinkBatch, error) {
	var batches []*LinkBatch
	err := db.store.Find(&batches, bolthold.Where("CourseID").Eq(courseID))
	return batches, err
}
