// Package student содержит доменную модель ученика школы.
//
// Пакет определяет:
//
//   - Сущность Student - неизменяемый снимок успеваемости и поведения
//   - Каталог предметов SubjectCode с названиями на русском и казахском
//   - Интерфейс Repository, реализации которого находятся в infrastructure
//
// # Граница загрузки
//
// Снимки приходят из внешних источников (PostgreSQL, JSON, XLSX) и
// проверяются один раз через Validate или ValidateAll. Дальше по системе
// ходят только проверенные значения, и движок риска не проверяет поля повторно:
//
//	students, err := importer.ReadJSON(r)
//	if err != nil {
//	    return err
//	}
//	if err := student.ValidateAll(students); err != nil {
//	    return err
//	}
//	repo.Upsert(ctx, students...)
//
// # Пропуски
//
// Absences включает UnexcusedAbsences. Число уважительных пропусков
// вычисляется через ExcusedAbsences и никогда не бывает отрицательным.
package student
