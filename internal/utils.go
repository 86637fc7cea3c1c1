package internal

import "go.mongodb.org/mongo-driver/bson/primitive"

func ContainsObjectID(s []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// AppendObjectID appends id unless it is already present.
func AppendObjectID(s []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if ContainsObjectID(s, id) {
		return s
	}
	return append(s, id)
}
