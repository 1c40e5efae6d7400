package rbac

const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

const (
	PermExamStart    = "mockexam:start"
	PermExamDecide   = "mockexam:decide"
	PermExamAnswer   = "mockexam:answer"
	PermExamComplete = "mockexam:complete"
	PermExamViewOwn  = "mockexam:view-own"
	PermCatalogView  = "catalog:view"
)

var RolePermissions = map[string][]string{
	RoleLearner: {
		"mockexam:*",
	},
	RoleAdmin: {
		"*",
	},
}
