package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/drive"
	repoDrive "coursedrive/internal/domain/repositories/drive"
)

// Books before contents ("book" < "content"), then by title
var listingSort = bson.D{{Key: "type", Value: 1}, {Key: "title", Value: 1}, {Key: "_id", Value: 1}}

// MongoNodeRepository implements the NodeRepository interface
type MongoNodeRepository struct {
	client *mongo.Client
	nodes  *mongo.Collection
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) repoDrive.NodeRepository {
	return &MongoNodeRepository{
		client: config.Client,
		nodes:  config.Database.Collection(config.Collections.Nodes),
		logger: config.Logger,
	}
}

// Create inserts a node. A child insert bumps its parent's revision inside the
// same transaction, so it conflicts with a concurrent DeleteIfEmpty of the parent.
func (r *MongoNodeRepository) Create(ctx context.Context, node *drive.Node) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	if node.UpdatedAt.IsZero() {
		node.UpdatedAt = node.CreatedAt
	}

	doc, err := toNodeDocument(node)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if doc.ParentID == nil {
		if _, err := r.nodes.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", node.Kind, err)
		}
		node.ID = doc.ID.Hex()
		return nil
	}

	err = withTransaction(ctx, r.client, func(ctx context.Context) error {
		res, err := r.nodes.UpdateOne(ctx,
			bson.M{"_id": *doc.ParentID, "createdBy": node.CreatedBy, "type": string(drive.KindBook)},
			bson.M{"$inc": bson.M{"rev": 1}},
		)
		if err != nil {
			return fmt.Errorf("lock parent: %w", err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("book %s: %w", *node.ParentID, domain.ErrNotFound)
		}

		if _, err := r.nodes.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", node.Kind, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	node.ID = doc.ID.Hex()
	return nil
}

// GetByID retrieves a node by ID
func (r *MongoNodeRepository) GetByID(ctx context.Context, id, ownerID string) (*drive.Node, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	var doc nodeDocument
	err = r.nodes.FindOne(ctx, bson.M{"_id": oid, "createdBy": ownerID}).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return doc.toModel()
}

// Ancestors resolves the parent chain with one $graphLookup. The lookup never
// revisits a document, so a chain whose root-most parent is already in the
// result is a cycle.
func (r *MongoNodeRepository) Ancestors(ctx context.Context, id, ownerID string, limit int) ([]drive.Node, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if limit < 2 {
		node, err := r.GetByID(ctx, id, ownerID)
		if err != nil {
			return nil, err
		}
		return []drive.Node{*node}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": oid, "createdBy": ownerID}}},
		{{Key: "$graphLookup", Value: bson.M{
			"from":                    r.nodes.Name(),
			"startWith":               "$parentId",
			"connectFromField":        "parentId",
			"connectToField":          "_id",
			"as":                      "ancestors",
			"maxDepth":                limit - 2,
			"depthField":              "depth",
			"restrictSearchWithMatch": bson.M{"createdBy": ownerID},
		}}},
	}

	cursor, err := r.nodes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("get ancestors: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("get ancestors: %w", err)
		}
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	var doc ancestryDocument
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode ancestors: %w", err)
	}

	sort.Slice(doc.Ancestors, func(i, j int) bool {
		return doc.Ancestors[i].Depth < doc.Ancestors[j].Depth
	})

	docs := make([]nodeDocument, 0, len(doc.Ancestors)+1)
	docs = append(docs, doc.nodeDocument)
	for _, a := range doc.Ancestors {
		docs = append(docs, a.nodeDocument)
	}

	visited := make(map[primitive.ObjectID]struct{}, len(docs))
	chain := make([]drive.Node, 0, len(docs))
	for i, d := range docs {
		// A gap in the parent links means the chain already looped back
		if i > 0 && (docs[i-1].ParentID == nil || *docs[i-1].ParentID != d.ID) {
			break
		}
		visited[d.ID] = struct{}{}
		node, err := d.toModel()
		if err != nil {
			return nil, err
		}
		chain = append(chain, *node)
	}

	last := docs[len(chain)-1]
	if last.ParentID != nil && len(chain) < limit {
		if _, seen := visited[*last.ParentID]; seen {
			return nil, fmt.Errorf("%w: tree cycle detected at %s", domain.ErrTreeCorrupted, last.ParentID.Hex())
		}
	}
	return chain, nil
}

// ListChildren lists the non-trashed children of a parent
func (r *MongoNodeRepository) ListChildren(ctx context.Context, parentID *string, ownerID string) ([]drive.Node, error) {
	filter := bson.M{"createdBy": ownerID, "isTrash": false, "parentId": nil}
	if parentID != nil {
		oid, err := parseID("parentId", *parentID)
		if err != nil {
			return nil, err
		}
		filter["parentId"] = oid
	}

	cursor, err := r.nodes.Find(ctx, filter, options.Find().SetSort(listingSort))
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return decodeNodes(ctx, cursor)
}

// CountChildren counts the non-trashed children of each parent
func (r *MongoNodeRepository) CountChildren(ctx context.Context, parentIDs []string, ownerID string) (map[string]int64, error) {
	counts := make(map[string]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return counts, nil
	}

	oids, err := parseIDs("parentId", parentIDs)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"createdBy": ownerID,
			"isTrash":   false,
			"parentId":  bson.M{"$in": oids},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$parentId",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.nodes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count children: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			ID    primitive.ObjectID `bson:"_id"`
			Count int64              `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode child count: %w", err)
		}
		counts[row.ID.Hex()] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate child counts: %w", err)
	}
	return counts, nil
}

// Update applies a patch to a node of the given kind
func (r *MongoNodeRepository) Update(ctx context.Context, id, ownerID string, kind drive.Kind, patch *drive.Patch, updatedAt time.Time) (*drive.Node, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": updatedAt.UTC().Truncate(time.Millisecond)}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Thumbnail != nil {
		set["thumbnail"] = *patch.Thumbnail
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Data != nil {
		data, err := payloadToBSON(patch.Data)
		if err != nil {
			return nil, err
		}
		set["data"] = data
	}
	if patch.IsDraft != nil {
		set["isDraft"] = *patch.IsDraft
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}

	return r.findOneAndSet(ctx, oid, ownerID, kind, set)
}

// SetTrash sets or clears the soft-delete flag
func (r *MongoNodeRepository) SetTrash(ctx context.Context, id, ownerID string, kind drive.Kind, trash bool, updatedAt time.Time) (*drive.Node, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	return r.findOneAndSet(ctx, oid, ownerID, kind, bson.M{
		"isTrash":   trash,
		"updatedAt": updatedAt.UTC().Truncate(time.Millisecond),
	})
}

// DeleteIfEmpty removes a node that has no non-trashed children, in one transaction
func (r *MongoNodeRepository) DeleteIfEmpty(ctx context.Context, id, ownerID string, kind drive.Kind) error {
	oid, err := parseID("id", id)
	if err != nil {
		return err
	}

	return withTransaction(ctx, r.client, func(ctx context.Context) error {
		res, err := r.nodes.DeleteOne(ctx, bson.M{"_id": oid, "createdBy": ownerID, "type": string(kind)})
		if err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}

		// The delete above is rolled back when children remain
		children, err := r.nodes.CountDocuments(ctx, bson.M{
			"createdBy": ownerID,
			"parentId":  oid,
			"isTrash":   false,
		})
		if err != nil {
			return fmt.Errorf("count children: %w", err)
		}
		if children > 0 {
			return &domain.NotEmptyError{ID: id, Children: children}
		}
		return nil
	})
}

// GetAllByOwner retrieves every node of a user without payloads
func (r *MongoNodeRepository) GetAllByOwner(ctx context.Context, ownerID string) ([]drive.Node, error) {
	opts := options.Find().
		SetSort(listingSort).
		SetProjection(bson.M{"data": 0})

	cursor, err := r.nodes.Find(ctx, bson.M{"createdBy": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return decodeNodes(ctx, cursor)
}

func (r *MongoNodeRepository) findOneAndSet(ctx context.Context, oid primitive.ObjectID, ownerID string, kind drive.Kind, set bson.M) (*drive.Node, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc nodeDocument
	err := r.nodes.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "createdBy": ownerID, "type": string(kind)},
		bson.M{"$set": set},
		opts,
	).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, oid.Hex(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update %s: %w", kind, err)
	}
	return doc.toModel()
}

func decodeNodes(ctx context.Context, cursor *mongo.Cursor) ([]drive.Node, error) {
	defer cursor.Close(ctx)

	var nodes []drive.Node
	for cursor.Next(ctx) {
		var doc nodeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode node: %w", err)
		}
		node, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}
