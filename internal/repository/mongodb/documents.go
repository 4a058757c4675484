package mongodb

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coursedrive/internal/domain/models/drive"
	"coursedrive/internal/domain/models/quiz"
)

// nodeDocument is the stored shape of a drive node
type nodeDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Kind        string              `bson:"type"`
	Title       string              `bson:"title"`
	Thumbnail   string              `bson:"thumbnail"`
	ParentID    *primitive.ObjectID `bson:"parentId"`
	CreatedBy   string              `bson:"createdBy"`
	IsDraft     bool                `bson:"isDraft"`
	IsTrash     bool                `bson:"isTrash"`
	Tags        []string            `bson:"tags,omitempty"`
	Description *string             `bson:"description,omitempty"`
	Data        bson.Raw            `bson:"data,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"`
	// Bumped by child inserts so they conflict with a concurrent permanent delete
	Revision int64 `bson:"rev"`
}

// ancestryDocument is a node joined with its parent chain by $graphLookup
type ancestryDocument struct {
	nodeDocument `bson:",inline"`
	Ancestors    []ancestorDocument `bson:"ancestors"`
}

type ancestorDocument struct {
	nodeDocument `bson:",inline"`
	Depth        int64 `bson:"depth"`
}

type quizDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ContentID primitive.ObjectID `bson:"contentId"`
	CreatedBy string             `bson:"createdBy"`
	Questions []quiz.Question    `bson:"questions"`
	Model     string             `bson:"model"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// payloadToBSON converts an opaque JSON object payload into a BSON document
func payloadToBSON(data json.RawMessage) (bson.Raw, error) {
	if data == nil {
		return nil, nil
	}
	var doc bson.Raw
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return doc, nil
}

func payloadToJSON(doc bson.Raw) (json.RawMessage, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func toNodeDocument(n *drive.Node) (*nodeDocument, error) {
	data, err := payloadToBSON(n.Data)
	if err != nil {
		return nil, err
	}

	doc := &nodeDocument{
		Kind:        string(n.Kind),
		Title:       n.Title,
		Thumbnail:   n.Thumbnail,
		CreatedBy:   n.CreatedBy,
		IsDraft:     n.IsDraft,
		IsTrash:     n.IsTrash,
		Tags:        n.Tags,
		Description: n.Description,
		Data:        data,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
	if n.ParentID != nil {
		parent, err := parseID("parentId", *n.ParentID)
		if err != nil {
			return nil, err
		}
		doc.ParentID = &parent
	}
	return doc, nil
}

func (d *nodeDocument) toModel() (*drive.Node, error) {
	data, err := payloadToJSON(d.Data)
	if err != nil {
		return nil, err
	}

	n := &drive.Node{
		ID:          d.ID.Hex(),
		Kind:        drive.Kind(d.Kind),
		Title:       d.Title,
		Thumbnail:   d.Thumbnail,
		CreatedBy:   d.CreatedBy,
		IsDraft:     d.IsDraft,
		IsTrash:     d.IsTrash,
		Tags:        d.Tags,
		Description: d.Description,
		Data:        data,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.ParentID != nil {
		parent := d.ParentID.Hex()
		n.ParentID = &parent
	}
	return n, nil
}

func (d *quizDocument) toModel() *quiz.Quiz {
	return &quiz.Quiz{
		ID:        d.ID.Hex(),
		ContentID: d.ContentID.Hex(),
		CreatedBy: d.CreatedBy,
		Questions: d.Questions,
		Model:     d.Model,
		CreatedAt: d.CreatedAt,
	}
}
