package fflogs

import "encoding/json"

// Wire shapes for the FFLogs v2 client API. Field names follow the GraphQL
// schema, which is not under our control.

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type WorldData struct {
	WorldData struct {
		Expansions []Expansion `json:"expansions"`
	} `json:"worldData"`
}

type Expansion struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Zones []Zone `json:"zones"`
}

type Zone struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Frozen       bool         `json:"frozen"`
	Encounters   []Encounter  `json:"encounters"`
	Difficulties []Difficulty `json:"difficulties"`
}

type Encounter struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Difficulty struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type characterData struct {
	CharacterData struct {
		Character *struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
			// zoneRankings is a JSON scalar in the schema, not a selection set
			ZoneRankings json.RawMessage `json:"zoneRankings"`
		} `json:"character"`
	} `json:"characterData"`
}

type ZoneRankings struct {
	Zone       int               `json:"zone"`
	Difficulty int               `json:"difficulty"`
	Metric     string            `json:"metric"`
	Partition  int               `json:"partition"`
	Rankings   []EncounterRank   `json:"rankings"`
}

type EncounterRank struct {
	Encounter   Encounter `json:"encounter"`
	RankPercent *float64  `json:"rankPercent"`
	TotalKills  int       `json:"totalKills"`
	FastestKill int64     `json:"fastestKill"`
	Spec        string    `json:"spec"`
	BestSpec    string    `json:"bestSpec"`
}

type RateLimitData struct {
	RateLimitData struct {
		LimitPerHour        int     `json:"limitPerHour"`
		PointsSpentThisHour float64 `json:"pointsSpentThisHour"`
		PointsResetIn       int     `json:"pointsResetIn"`
	} `json:"rateLimitData"`
}
