package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *MongoStore) FetchOrganizations(ctx context.Context) ([]models.Org, error) {
	docs, err := s.findDocs(ctx, CollOrganizations, bson.M{})
	if err != nil {
		return nil, err
	}
	orgs := make([]models.Org, 0, len(docs))
	for _, doc := range docs {
		orgs = append(orgs, mapOrg(doc))
	}
	return orgs, nil
}

func (s *MongoStore) FetchBranches(ctx context.Context, orgID string) ([]models.Branch, error) {
	docs, err := s.findDocs(ctx, CollBranches, bson.M{"orgId": orgID})
	if err != nil {
		return nil, err
	}
	branches := make([]models.Branch, 0, len(docs))
	for _, doc := range docs {
		branches = append(branches, mapBranch(doc, orgID))
	}
	return branches, nil
}

// FetchDrivers lists the users of an organization holding the Driver role.
func (s *MongoStore) FetchDrivers(ctx context.Context, orgID string) ([]models.Driver, error) {
	docs, err := s.findDocs(ctx, CollUsers, bson.M{"orgId": orgID, "role": string(models.UserRoleDriver)})
	if err != nil {
		return nil, err
	}
	drivers := make([]models.Driver, 0, len(docs))
	for _, doc := range docs {
		drivers = append(drivers, mapDriver(doc))
	}
	return drivers, nil
}

// FetchUserByPhone returns the user registered with phone.
func (s *MongoStore) FetchUserByPhone(ctx context.Context, phone string) (models.User, error) {
	var doc bson.M
	err := s.coll(CollUsers).FindOne(ctx, bson.M{"phone": phone}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, fmt.Errorf("%w: %s", models.ErrUserNotFound, phone)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return models.User{
		ID:       docID(doc),
		Name:     str(doc, "name"),
		Email:    str(doc, "email"),
		Phone:    str(doc, "phone"),
		Role:     models.UserRole(str(doc, "role")),
		OrgID:    str(doc, "orgId"),
		BranchID: str(doc, "branchId"),
	}, nil
}
