package bot

const (
	msgStart = "👋 Добро пожаловать!\n\n" +
		"/read — начать чтение\n" +
		"/buy — купить платные чтения\n" +
		"/balance — остаток чтений\n" +
		"/payments — история платежей\n" +
		"/cancel — остановить текущее чтение"
	msgHelp = msgStart

	msgReadingStarted     = "🔮 Начинаем: %s"
	msgReadingDefaultName = "стандартный сценарий"
	msgEmptyScript        = "😔 Сценарий пока пуст. Загляните позже."
	msgNoBalance          = "💎 Платные чтения закончились. Пополнить: /buy"
	msgCancelled          = "⏹ Чтение остановлено."
	msgNothingToCancel    = "Нет активного чтения."
	msgBalance            = "💎 Осталось платных чтений: %d"

	msgBuyMenu         = "💳 Выберите пакет чтений:"
	msgPackageButton   = "💎 %d чтений - %s₽"
	msgPaymentDetails  = "🧾 %s\nСумма: %s %s\n\nНажмите «Оплатить», чтобы перейти к оплате."
	msgPaymentError    = "❌ Не удалось создать платеж. Попробуйте позже."
	msgUnknownPackage  = "❌ Пакет не найден."
	msgPurchasesOff    = "⏸ Покупки временно недоступны."
	msgPaymentsEmpty   = "У вас пока нет платежей."
	msgPaymentsTitle   = "📋 Ваши платежи:"
	msgPaymentLine     = "%s #%s — %s %s\n📅 %s\n🔹 %s"
	msgBackToMenu      = "📋 Вы вернулись в главное меню.\n\n/read — начать чтение\n/buy — купить чтения"
	msgAnswerAccepted  = "Ответ принят"
	msgSkipAccepted    = "Вопрос пропущен"
	msgGenericError    = "⚠️ Что-то пошло не так. Попробуйте позже."
	msgAdminOnly       = "⛔ Команда доступна только администратору."
	msgPhotoIDHelp     = "Пришлите фото с подписью /get_photo_id, чтобы узнать его file_id."
	msgPhotoID         = "file_id: %s"
	buttonPay          = "💳 Оплатить"
	buttonBackToMenu   = "⬅️ В меню"
	callbackBackToMenu = "back_to_menu"
)

var paymentStatusIcon = map[string]string{
	"pending":   "⏳",
	"succeeded": "✅",
	"canceled":  "❌",
	"failed":    "❌",
}
