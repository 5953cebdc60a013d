package render

import "strings"

// Labels are the fixed UI strings of one locale.
type Labels struct {
	Lang            string
	PageTitle       string
	AboutHeading    string
	EditProfile     string
	SchoolLabel     string
	AgeLabel        string
	HobbiesLabel    string
	NewPostHeading  string
	TitleField      string
	ContentField    string
	Publish         string
	PostsHeading    string
	Empty           string
	DeleteLabel     string
	DeleteQuestion  string
	DeleteYes       string
	DeleteNo        string
	ModalHeading    string
	NameField       string
	AvatarHeading   string
	AvatarPresetTab string
	AvatarURLTab    string
	AvatarFileTab   string
	NoAvatar        string
	Save            string
	Close           string
	Required        string
	StorageFailed   string
	AvatarNotImage  string
	AvatarTooLarge  string
	PostMissing     string
}

var labels = map[string]Labels{
	"ru": {
		Lang:            "ru",
		PageTitle:       "Моя страница",
		AboutHeading:    "Обо мне",
		EditProfile:     "Редактировать профиль",
		SchoolLabel:     "Учёба",
		AgeLabel:        "Возраст",
		HobbiesLabel:    "Хобби",
		NewPostHeading:  "Новый пост",
		TitleField:      "Заголовок",
		ContentField:    "Текст",
		Publish:         "Опубликовать",
		PostsHeading:    "Посты",
		Empty:           "Здесь пока пусто...",
		DeleteLabel:     "Удалить пост",
		DeleteQuestion:  "Вы уверены, что хотите удалить этот пост?",
		DeleteYes:       "Удалить",
		DeleteNo:        "Отмена",
		ModalHeading:    "Редактирование профиля",
		NameField:       "ФИО",
		AvatarHeading:   "Аватар",
		AvatarPresetTab: "Готовые",
		AvatarURLTab:    "Ссылка",
		AvatarFileTab:   "Файл",
		NoAvatar:        "Нет изображения",
		Save:            "Сохранить",
		Close:           "Закрыть",
		Required:        "Заполните поле",
		StorageFailed:   "Не удалось сохранить изменения. Попробуйте ещё раз.",
		AvatarNotImage:  "Выбранный файл не является изображением.",
		AvatarTooLarge:  "Файл слишком большой.",
		PostMissing:     "Пост не найден.",
	},
	"en": {
		Lang:            "en",
		PageTitle:       "My page",
		AboutHeading:    "About me",
		EditProfile:     "Edit profile",
		SchoolLabel:     "School",
		AgeLabel:        "Age",
		HobbiesLabel:    "Hobbies",
		NewPostHeading:  "New post",
		TitleField:      "Title",
		ContentField:    "Text",
		Publish:         "Publish",
		PostsHeading:    "Posts",
		Empty:           "Nothing here yet...",
		DeleteLabel:     "Delete post",
		DeleteQuestion:  "Are you sure you want to delete this post?",
		DeleteYes:       "Delete",
		DeleteNo:        "Cancel",
		ModalHeading:    "Edit profile",
		NameField:       "Full name",
		AvatarHeading:   "Avatar",
		AvatarPresetTab: "Presets",
		AvatarURLTab:    "Link",
		AvatarFileTab:   "File",
		NoAvatar:        "No image",
		Save:            "Save",
		Close:           "Close",
		Required:        "Required",
		StorageFailed:   "Could not save your changes. Please try again.",
		AvatarNotImage:  "The selected file is not an image.",
		AvatarTooLarge:  "The file is too large.",
		PostMissing:     "Post not found.",
	},
}

// LabelsFor falls back to Russian for unknown locales.
func LabelsFor(locale string) Labels {
	base := strings.ToLower(locale)
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if l, ok := labels[base]; ok {
		return l
	}
	return labels["ru"]
}
