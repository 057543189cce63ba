// services/catalog_data.go - Built-in campus achievement map
package services

import "unimap/models"

// defaultCatalog is the shipped campus map. Deployments replace it via
// CATALOG_FILE; the built-in set keeps local development self-contained.
func defaultCatalog() []models.AchievementDefinition {
	return []models.AchievementDefinition{
		{ID: "nus_start", Title: "Matriculated", Description: "Welcome to campus. Your journey starts here.", Category: models.CategoryGeneral, Kind: models.KindRoot, XP: 0, MapX: 0.50, MapY: 0.52},

		// General
		{ID: "student_card", ParentID: "nus_start", Title: "Card Carrier", Description: "Collect your student card.", Category: models.CategoryGeneral, Kind: models.KindTask, XP: 5, MapX: 0.46, MapY: 0.48},
		{ID: "campus_map", ParentID: "nus_start", Title: "Cartographer", Description: "Open the campus map for the first time.", Category: models.CategoryGeneral, Kind: models.KindTask, XP: 5, MapX: 0.54, MapY: 0.47},
		{ID: "shuttle_ride", ParentID: "campus_map", Title: "Shuttle Surfer", Description: "Ride the internal shuttle bus.", Category: models.CategoryGeneral, Kind: models.KindTask, XP: 10, MapX: 0.58, MapY: 0.44},
		{ID: "late_night_supper", ParentID: "shuttle_ride", Title: "Supper Club", Description: "Have supper on campus after midnight.", Category: models.CategoryGeneral, Kind: models.KindGoal, XP: 15, MapX: 0.62, MapY: 0.40},
		{ID: "all_nighter", ParentID: "late_night_supper", Title: "Sunrise Scholar", Description: "Pull an all-nighter in a reading room.", Category: models.CategoryGeneral, Kind: models.KindChallenge, XP: 25, MapX: 0.66, MapY: 0.36},

		// Academic
		{ID: "first_lecture", ParentID: "nus_start", Title: "First Lecture", Description: "Attend your first lecture.", Category: models.CategoryAcademic, Kind: models.KindTask, XP: 10, MapX: 0.42, MapY: 0.56},
		{ID: "first_tutorial", ParentID: "first_lecture", Title: "Tutorial Time", Description: "Attend your first tutorial.", Category: models.CategoryAcademic, Kind: models.KindTask, XP: 10, MapX: 0.38, MapY: 0.60},
		{ID: "ask_question", ParentID: "first_tutorial", Title: "Hand Raised", Description: "Ask a question during class.", Category: models.CategoryAcademic, Kind: models.KindGoal, XP: 15, MapX: 0.34, MapY: 0.63},
		{ID: "office_hours", ParentID: "ask_question", Title: "Office Hours", Description: "Visit a professor during consultation hours.", Category: models.CategoryAcademic, Kind: models.KindGoal, XP: 20, MapX: 0.30, MapY: 0.66},
		{ID: "group_project", ParentID: "first_tutorial", Title: "Project Partners", Description: "Finish a project milestone with a partner.", Category: models.CategoryAcademic, Kind: models.KindCoop, XP: 50, MapX: 0.33, MapY: 0.57},
		{ID: "deans_list", ParentID: "office_hours", Title: "Dean's List", Description: "Make the Dean's List.", Category: models.CategoryAcademic, Kind: models.KindChallenge, XP: 100, MapX: 0.26, MapY: 0.70},

		// Social
		{ID: "orientation_week", ParentID: "nus_start", Title: "Orientation Survivor", Description: "Complete orientation week.", Category: models.CategorySocial, Kind: models.KindTask, XP: 10, MapX: 0.55, MapY: 0.58},
		{ID: "join_club", ParentID: "orientation_week", Title: "Club Member", Description: "Join a student club or society.", Category: models.CategorySocial, Kind: models.KindTask, XP: 15, MapX: 0.59, MapY: 0.62},
		{ID: "hall_dinner", ParentID: "join_club", Title: "Hall Dinner", Description: "Attend a formal hall dinner.", Category: models.CategorySocial, Kind: models.KindGoal, XP: 15, MapX: 0.63, MapY: 0.65},
		{ID: "study_buddy", ParentID: "orientation_week", Title: "Study Buddies", Description: "Complete a full study session with a buddy.", Category: models.CategorySocial, Kind: models.KindCoop, XP: 30, MapX: 0.60, MapY: 0.55},
		{ID: "intramurals", ParentID: "join_club", Title: "Game On", Description: "Play in an inter-hall game.", Category: models.CategorySocial, Kind: models.KindChallenge, XP: 30, MapX: 0.67, MapY: 0.60},

		// Exploration
		{ID: "library_visit", ParentID: "nus_start", Title: "Shelf Seeker", Description: "Visit the central library.", Category: models.CategoryExploration, Kind: models.KindTask, XP: 10, MapX: 0.47, MapY: 0.42},
		{ID: "museum_visit", ParentID: "library_visit", Title: "Curator's Friend", Description: "Visit the campus museum.", Category: models.CategoryExploration, Kind: models.KindTask, XP: 15, MapX: 0.44, MapY: 0.37},
		{ID: "hidden_garden", ParentID: "museum_visit", Title: "Secret Garden", Description: "Find the rooftop garden.", Category: models.CategoryExploration, Kind: models.KindGoal, XP: 20, MapX: 0.41, MapY: 0.32},
		{ID: "campus_explorer", ParentID: "library_visit", Title: "Campus Explorer", Description: "Scan the marker at five different faculties.", Category: models.CategoryExploration, Kind: models.KindChallenge, XP: 40, RequiredCodeCount: 5, MapX: 0.50, MapY: 0.30},
		{ID: "every_canteen", ParentID: "hidden_garden", Title: "Canteen Completionist", Description: "Eat at every canteen on campus.", Category: models.CategoryExploration, Kind: models.KindChallenge, XP: 35, MapX: 0.37, MapY: 0.27},
	}
}
