package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository"
)

const (
	collFarms         = "farms"
	collBatches       = "chicken_batches"
	collMovements     = "stock_movements"
	collDistributions = "distributions"
	collDeliveries    = "deliveries"
	collOrders        = "orders"
	collSales         = "sales"
	collPayments      = "payments"
	collUsers         = "users"
	collShops         = "shops"
	collNotifications = "notifications"
)

// MongoDBRepository implements repository.Store on MongoDB. Transactions need a
// replica set or sharded cluster.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects, pings and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
	}

	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collBatches: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "batch_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "farm_id", Value: 1}}},
		},
		collMovements: {
			{Keys: bson.D{{Key: "farm_id", Value: 1}, {Key: "batch_id", Value: 1}, {Key: "_id", Value: 1}}},
		},
		collDistributions: {
			{Keys: bson.D{{Key: "scheduled_date", Value: 1}}},
		},
		collDeliveries: {
			{Keys: bson.D{{Key: "distribution_id", Value: 1}}},
		},
		collSales: {
			{Keys: bson.D{{Key: "payment_status", Value: 1}}},
		},
		collPayments: {
			{Keys: bson.D{{Key: "sale_id", Value: 1}}},
		},
		collUsers: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role", Value: 1}}},
		},
		collNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// RunInTransaction implements repository.TxManager with a multi-document
// transaction. Calls made with a context already bound to a session join it.
func (r *MongoDBRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	var hooks *repository.CommitHooks
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// WithTransaction may retry; only the committed attempt's hooks run.
		var txCtx context.Context
		txCtx, hooks = repository.WithCommitHooks(sc)
		return nil, fn(txCtx)
	})
	if err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

func (r *MongoDBRepository) insert(ctx context.Context, coll string, doc any) error {
	if _, err := r.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert into %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) findOne(ctx context.Context, coll string, filter bson.M, out any) error {
	err := r.db.Collection(coll).FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll, err)
	}
	return nil
}

func (r *MongoDBRepository) replace(ctx context.Context, coll, id string, doc any) error {
	res, err := r.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("replace in %s: %w", coll, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func findAll[T any](ctx context.Context, r *MongoDBRepository, coll string, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := r.db.Collection(coll).Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll, err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll, err)
	}
	return out, nil
}

func byID() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

var liveOnly = bson.M{"$exists": false}

func (r *MongoDBRepository) CreateFarm(ctx context.Context, farm models.Farm) error {
	return r.insert(ctx, collFarms, farm)
}

func (r *MongoDBRepository) GetFarm(ctx context.Context, id string) (*models.Farm, error) {
	var farm models.Farm
	if err := r.findOne(ctx, collFarms, bson.M{"_id": id}, &farm); err != nil {
		return nil, err
	}
	return &farm, nil
}

func (r *MongoDBRepository) ListFarms(ctx context.Context, tenantID string) ([]models.Farm, error) {
	filter := bson.M{}
	if tenantID != "" {
		filter["tenant_id"] = tenantID
	}
	return findAll[models.Farm](ctx, r, collFarms, filter, byID())
}

func (r *MongoDBRepository) UpdateFarm(ctx context.Context, farm models.Farm) error {
	return r.replace(ctx, collFarms, farm.ID, farm)
}

func (r *MongoDBRepository) CreateBatch(ctx context.Context, batch models.ChickenBatch) error {
	return r.insert(ctx, collBatches, batch)
}

func (r *MongoDBRepository) GetBatch(ctx context.Context, id string) (*models.ChickenBatch, error) {
	var batch models.ChickenBatch
	if err := r.findOne(ctx, collBatches, bson.M{"_id": id, "deleted_at": liveOnly}, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *MongoDBRepository) FindBatchByNumber(ctx context.Context, tenantID, batchNumber string) (*models.ChickenBatch, error) {
	var batch models.ChickenBatch
	filter := bson.M{"tenant_id": tenantID, "batch_number": batchNumber, "deleted_at": liveOnly}
	if err := r.findOne(ctx, collBatches, filter, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *MongoDBRepository) ListBatchesByFarm(ctx context.Context, farmID string) ([]models.ChickenBatch, error) {
	return findAll[models.ChickenBatch](ctx, r, collBatches, bson.M{"farm_id": farmID, "deleted_at": liveOnly}, byID())
}

func (r *MongoDBRepository) UpdateBatch(ctx context.Context, batch models.ChickenBatch) error {
	return r.replace(ctx, collBatches, batch.ID, batch)
}

func (r *MongoDBRepository) AppendMovement(ctx context.Context, movement models.StockMovement) error {
	return r.insert(ctx, collMovements, movement)
}

func (r *MongoDBRepository) ListMovements(ctx context.Context, farmID, batchID string) ([]models.StockMovement, error) {
	return findAll[models.StockMovement](ctx, r, collMovements, bson.M{"farm_id": farmID, "batch_id": batchID}, byID())
}

func (r *MongoDBRepository) ListFarmMovements(ctx context.Context, farmID string) ([]models.StockMovement, error) {
	return findAll[models.StockMovement](ctx, r, collMovements, bson.M{"farm_id": farmID}, byID())
}

func (r *MongoDBRepository) CreateDistribution(ctx context.Context, distribution models.Distribution) error {
	return r.insert(ctx, collDistributions, distribution)
}

func (r *MongoDBRepository) GetDistribution(ctx context.Context, id string) (*models.Distribution, error) {
	var distribution models.Distribution
	if err := r.findOne(ctx, collDistributions, bson.M{"_id": id}, &distribution); err != nil {
		return nil, err
	}
	return &distribution, nil
}

func (r *MongoDBRepository) UpdateDistribution(ctx context.Context, distribution models.Distribution) error {
	return r.replace(ctx, collDistributions, distribution.ID, distribution)
}

func (r *MongoDBRepository) ListDistributionsScheduledBetween(ctx context.Context, from, to time.Time) ([]models.Distribution, error) {
	filter := bson.M{"scheduled_date": bson.M{"$gte": from, "$lt": to}}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_date", Value: 1}})
	return findAll[models.Distribution](ctx, r, collDistributions, filter, opts)
}

func (r *MongoDBRepository) CreateDelivery(ctx context.Context, delivery models.Delivery) error {
	return r.insert(ctx, collDeliveries, delivery)
}

func (r *MongoDBRepository) GetDelivery(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.findOne(ctx, collDeliveries, bson.M{"_id": id}, &delivery); err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *MongoDBRepository) UpdateDelivery(ctx context.Context, delivery models.Delivery) error {
	return r.replace(ctx, collDeliveries, delivery.ID, delivery)
}

func (r *MongoDBRepository) ListDeliveriesByDistribution(ctx context.Context, distributionID string) ([]models.Delivery, error) {
	return findAll[models.Delivery](ctx, r, collDeliveries, bson.M{"distribution_id": distributionID}, byID())
}

func (r *MongoDBRepository) CreateOrder(ctx context.Context, order models.Order) error {
	return r.insert(ctx, collOrders, order)
}

func (r *MongoDBRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.findOne(ctx, collOrders, bson.M{"_id": id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoDBRepository) UpdateOrder(ctx context.Context, order models.Order) error {
	return r.replace(ctx, collOrders, order.ID, order)
}

func (r *MongoDBRepository) CreateSale(ctx context.Context, sale models.Sale) error {
	return r.insert(ctx, collSales, sale)
}

func (r *MongoDBRepository) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.findOne(ctx, collSales, bson.M{"_id": id}, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *MongoDBRepository) UpdateSale(ctx context.Context, sale models.Sale) error {
	return r.replace(ctx, collSales, sale.ID, sale)
}

func (r *MongoDBRepository) ListSalesByPaymentStatus(ctx context.Context, statuses ...models.PaymentStatus) ([]models.Sale, error) {
	return findAll[models.Sale](ctx, r, collSales, bson.M{"payment_status": bson.M{"$in": statuses}}, byID())
}

func (r *MongoDBRepository) CreatePayment(ctx context.Context, payment models.Payment) error {
	return r.insert(ctx, collPayments, payment)
}

func (r *MongoDBRepository) ListPaymentsBySale(ctx context.Context, saleID string) ([]models.Payment, error) {
	return findAll[models.Payment](ctx, r, collPayments, bson.M{"sale_id": saleID}, byID())
}

func (r *MongoDBRepository) CreateUser(ctx context.Context, user models.User) error {
	return r.insert(ctx, collUsers, user)
}

func (r *MongoDBRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.findOne(ctx, collUsers, bson.M{"_id": id}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoDBRepository) ListUsersByRole(ctx context.Context, tenantID string, role models.UserRole) ([]models.User, error) {
	filter := bson.M{"role": role}
	if tenantID != "" {
		filter["tenant_id"] = tenantID
	}
	return findAll[models.User](ctx, r, collUsers, filter, byID())
}

func (r *MongoDBRepository) CreateShop(ctx context.Context, shop models.Shop) error {
	return r.insert(ctx, collShops, shop)
}

func (r *MongoDBRepository) GetShop(ctx context.Context, id string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.findOne(ctx, collShops, bson.M{"_id": id}, &shop); err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *MongoDBRepository) CreateNotification(ctx context.Context, notification models.Notification) error {
	return r.insert(ctx, collNotifications, notification)
}

func (r *MongoDBRepository) ListNotificationsByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return findAll[models.Notification](ctx, r, collNotifications, bson.M{"user_id": userID}, opts)
}
