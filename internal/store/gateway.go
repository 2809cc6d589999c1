// server/internal/store/gateway.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-bridge-api-server/internal/lifecycle"
	"food-bridge-api-server/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const donationCollection = "donations"

// Gateway dịch các lifecycle event đã được engine xác nhận thành
// các thao tác trên MongoDB. Mọi transition là MỘT conditional write
// duy nhất; trọng tài của race nằm ở store, không nằm ở client.
type Gateway struct {
	DB   *mongo.Database
	Feed *Feed
}

func NewGateway(db *mongo.Database, feed *Feed) *Gateway {
	return &Gateway{DB: db, Feed: feed}
}

func (g *Gateway) collection() *mongo.Collection {
	return g.DB.Collection(donationCollection)
}

// Create ghi một donation mới với status=available.
// Các field do store/server kiểm soát bị ghi đè bất kể payload.
func (g *Gateway) Create(ctx context.Context, d models.Donation) (models.Donation, error) {
	now := time.Now()
	if err := lifecycle.ValidateNew(d, now); err != nil {
		return models.Donation{}, err
	}

	d.ID = primitive.NilObjectID
	d.DonationID = fmt.Sprintf("DON-%s", strings.ToUpper(uuid.New().String()[:8]))
	d.IsVeg = lifecycle.AllVeg(d.Items)
	d.Status = models.StatusAvailable
	d.RequestedBy = ""
	d.RequestedByName = ""
	d.RequestedAt = nil
	d.CollectedBy = ""
	d.CollectedByName = ""
	d.CollectedAt = nil
	d.CreatedAt = now

	result, err := g.collection().InsertOne(ctx, d)
	if err != nil {
		return models.Donation{}, &StoreError{Op: "create", Err: err}
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		d.ID = oid
	}

	g.Feed.Notify()
	return d, nil
}

// ApplyTransition tải snapshot hiện tại, hỏi engine, rồi phát đúng một
// conditional write. ModifiedCount/DeletedCount == 0 nghĩa là precondition
// không còn đúng tại thời điểm store áp dụng — thua race.
func (g *Gateway) ApplyTransition(ctx context.Context, donationID string, ev lifecycle.Event, actor lifecycle.Actor) (models.Donation, error) {
	var current models.Donation
	err := g.collection().FindOne(ctx, bson.M{"donationID": donationID}).Decode(&current)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Donation{}, ErrNotFound
		}
		return models.Donation{}, &StoreError{Op: "load", Err: err}
	}

	change, err := lifecycle.Decide(current, ev, actor, time.Now())
	if err != nil {
		return models.Donation{}, err
	}

	filter := transitionFilter(donationID, change)

	if change.Delete {
		result, err := g.collection().DeleteOne(ctx, filter)
		if err != nil {
			return models.Donation{}, &StoreError{Op: "delete", Err: err}
		}
		if result.DeletedCount == 0 {
			return models.Donation{}, ErrPreconditionFailed
		}
		g.Feed.Notify()
		return current, nil
	}

	result, err := g.collection().UpdateOne(ctx, filter, transitionUpdate(change))
	if err != nil {
		return models.Donation{}, &StoreError{Op: string(ev), Err: err}
	}
	if result.ModifiedCount == 0 {
		return models.Donation{}, ErrPreconditionFailed
	}

	g.Feed.Notify()
	return change.Apply(current), nil
}

// Delete xóa cứng một bản ghi ở trạng thái kết thúc.
// Quyền và điều kiện terminal nằm trong conditional filter của engine.
func (g *Gateway) Delete(ctx context.Context, donationID string, actor lifecycle.Actor) error {
	_, err := g.ApplyTransition(ctx, donationID, lifecycle.EventDelete, actor)
	return err
}

// AddPhoto gắn một ảnh món ăn vào donation của chính donor.
// Trạng thái kết thúc bị đóng băng nội dung nên filter chặn luôn.
func (g *Gateway) AddPhoto(ctx context.Context, donationID string, actor lifecycle.Actor, photo models.MediaPointer) error {
	filter := bson.M{
		"donationID": donationID,
		"donorID":    actor.ID,
		"status":     bson.M{"$in": []models.DonationStatus{models.StatusAvailable, models.StatusRequested}},
	}
	result, err := g.collection().UpdateOne(ctx, filter, bson.M{"$push": bson.M{"photos": photo}})
	if err != nil {
		return &StoreError{Op: "addPhoto", Err: err}
	}
	if result.ModifiedCount == 0 {
		return ErrPreconditionFailed
	}
	g.Feed.Notify()
	return nil
}

// FetchAll trả về toàn bộ collection, mới tạo trước.
func (g *Gateway) FetchAll(ctx context.Context) ([]models.Donation, error) {
	return g.fetchFiltered(ctx, bson.M{})
}

// FetchPool trả về "available pool": các donation còn thấy được với NGO.
// Donation đã requested vẫn nằm trong pool để thấy có tranh chấp.
func (g *Gateway) FetchPool(ctx context.Context) ([]models.Donation, error) {
	filter := bson.M{"status": bson.M{"$in": []models.DonationStatus{models.StatusAvailable, models.StatusRequested}}}
	return g.fetchFiltered(ctx, filter)
}

// FetchByDonor trả về mọi donation của một donor.
func (g *Gateway) FetchByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	return g.fetchFiltered(ctx, bson.M{"donorID": donorID})
}

// FetchByNGO trả về các donation NGO đang request hoặc đã thu gom.
func (g *Gateway) FetchByNGO(ctx context.Context, ngoID string) ([]models.Donation, error) {
	filter := bson.M{"$or": []bson.M{
		{"requestedBy": ngoID},
		{"collectedBy": ngoID},
	}}
	return g.fetchFiltered(ctx, filter)
}

func (g *Gateway) fetchFiltered(ctx context.Context, filter bson.M) ([]models.Donation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := g.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	defer cursor.Close(ctx)

	var donations []models.Donation
	if err = cursor.All(ctx, &donations); err != nil {
		return nil, &StoreError{Op: "fetch", Err: err}
	}
	if donations == nil {
		donations = []models.Donation{}
	}
	return donations, nil
}

// FindByID trả về một donation theo donationID.
func (g *Gateway) FindByID(ctx context.Context, donationID string) (models.Donation, error) {
	var d models.Donation
	err := g.collection().FindOne(ctx, bson.M{"donationID": donationID}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Donation{}, ErrNotFound
		}
		return models.Donation{}, &StoreError{Op: "find", Err: err}
	}
	return d, nil
}

// transitionFilter dựng precondition filter cho một Change.
// Đây chính là trọng tài của race: status (và actor binding) phải còn
// đúng tại thời điểm store áp dụng update.
func transitionFilter(donationID string, c lifecycle.Change) bson.M {
	filter := bson.M{
		"donationID": donationID,
		"status":     c.From,
	}
	if c.ExpectRequestedBy != "" {
		filter["requestedBy"] = c.ExpectRequestedBy
	}
	if c.ExpectCollectedBy != "" {
		filter["collectedBy"] = c.ExpectCollectedBy
	}
	if c.ExpectDonorID != "" {
		filter["donorID"] = c.ExpectDonorID
	}
	return filter
}

// transitionUpdate dựng update document cho một Change không phải Delete.
func transitionUpdate(c lifecycle.Change) bson.M {
	set := bson.M{"status": c.To}
	if c.SetRequestedBy != "" {
		set["requestedBy"] = c.SetRequestedBy
		set["requestedByName"] = c.SetRequestedByName
		set["requestedAt"] = c.SetRequestedAt
	}
	if c.SetCollectedBy != "" {
		set["collectedBy"] = c.SetCollectedBy
		set["collectedByName"] = c.SetCollectedByName
		set["collectedAt"] = c.SetCollectedAt
	}

	update := bson.M{"$set": set}
	if c.ClearRequest {
		update["$unset"] = bson.M{
			"requestedBy":     "",
			"requestedByName": "",
			"requestedAt":     "",
		}
	}
	return update
}
