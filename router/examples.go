package router

import "github.com/citypulse/trafficqa/schema"

// DefaultExamples returns the reference questions embedded per route. The
// banks stay small: routing compares against the nearest example, so a
// handful of spread-out phrasings per route is enough.
func DefaultExamples() map[schema.Route][]string {
	return map[schema.Route][]string{
		schema.RouteGreeting: {
			"hello",
			"hi there",
			"good morning",
			"hey, how are you",
			"thanks, goodbye",
		},
		schema.RouteStructured: {
			"how many intersections are in district North",
			"what is the average traffic volume per district",
			"count the cameras that are offline",
			"which intersection had the highest volume last week",
			"total number of signals installed since 2020",
			"list intersections with more than 3 signals",
		},
		schema.RouteDocuments: {
			"what does the signal retiming procedure say",
			"summarize the corridor study for Harbor Road",
			"what are the maintenance steps for a faulty detector",
			"explain the peak hour congestion policy",
			"what did the incident report conclude",
		},
	}
}
