package profile

// Default is the profile shown before the owner has saved one.
func Default() Profile {
	return Profile{
		Name:    "Фамилия Имя Отчество",
		Avatar:  "https://i.pravatar.cc/96?img=12",
		School:  "НИУ ВШЭ МИЭМ",
		Age:     "52",
		Hobbies: "Что-то",
	}
}
