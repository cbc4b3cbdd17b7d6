package routingalgorithm

import (
	"github.com/mikelor/routing2/pkg/datastructure"
)

func RoadTypeMaxSpeed(roadType string) float64 {
	switch roadType {
	case "motorway":
		return 95
	case "trunk":
		return 85
	case "primary":
		return 75
	case "secondary":
		return 65
	case "tertiary":
		return 50
	case "unclassified":
		return 50
	case "residential":
		return 30
	case "service":
		return 20
	case "motorway_link":
		return 90
	case "trunk_link":
		return 80
	case "primary_link":
		return 70
	case "secondary_link":
		return 60
	case "tertiary_link":
		return 50
	case "living_street":
		return 20
	default:
		return 40
	}
}

// TravelTimeCost weighs edges by driving time in seconds using the highway
// class speed table, honors oneway tagging and consults the turn cost
// tables at the vertex the edge is entered through.
func TravelTimeCost() CostFunc {
	return func(edge DirectedEdge, previousEdges []datastructure.EdgeID) (float64, float64) {
		var roadClass, oneway string
		for _, attr := range edge.Attributes() {
			switch attr.Key {
			case "highway":
				roadClass = attr.Value
			case "oneway":
				oneway = attr.Value
			}
		}
		if oneway == "yes" && !edge.Forward {
			return -1, 0
		}
		if oneway == "-1" && edge.Forward {
			return -1, 0
		}

		speedKMH := RoadTypeMaxSpeed(roadClass)
		edgeCost := edge.LengthM() / (speedKMH / 3.6)

		turnCost := 0.0
		if len(previousEdges) > 0 {
			entry := edge.FromVertex()
			if !edge.Forward {
				entry = edge.ToVertex()
			}
			for _, table := range edge.TurnCostTables(entry) {
				if cost, ok := table.Cost(previousEdges[0], edge.Canonical()); ok {
					turnCost += cost
				}
			}
		}
		return edgeCost, turnCost
	}
}

// DistanceCost weighs edges by length in meters.
func DistanceCost() CostFunc {
	return func(edge DirectedEdge, previousEdges []datastructure.EdgeID) (float64, float64) {
		return edge.LengthM(), 0
	}
}
