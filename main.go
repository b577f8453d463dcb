package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"school-library/library"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const envDataDir = "LIBRARY_DATA_DIR"

// session is the tenant and user identity every shell action runs under.
type session struct {
	school *library.School
	user   *library.User
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:           "school-library",
		Short:         "Track students, books, and loans for a school library",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				dataDir = defaultDataDir()
			}
			return run(dataDir)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the database and sidecar files")
	return cmd
}

// defaultDataDir resolves the data directory from .env/environment, then
// falls back to a dot directory in the user's home.
func defaultDataDir() string {
	_ = godotenv.Load() // a missing .env is fine
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".school-library"
	}
	return filepath.Join(home, ".school-library")
}

func run(dataDir string) error {
	manager, err := library.NewManager(dataDir)
	if err != nil {
		log.Printf("open data directory %s: %v", dataDir, err)
		return err
	}
	defer manager.Close()

	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("School Library System")
	fmt.Printf("Data directory: %s\n\n", dataDir)

	sess, err := login(scanner, manager)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	fmt.Printf("\nLogged in to %s as %s (%s)\n", sess.school.Name, sess.user.Username, sess.user.Role)
	printHelp()

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return nil
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add student":
			handleAddStudent(scanner, manager, sess)
		case "delete student":
			handleDeleteStudent(scanner, manager, sess)
		case "list students":
			handleListStudents(manager, sess)
		case "search student":
			handleSearchStudent(scanner, manager, sess)
		case "add book":
			handleAddBook(scanner, manager, sess)
		case "delete book":
			handleDeleteBook(scanner, manager, sess)
		case "list books":
			handleListBooks(manager, sess)
		case "search book":
			handleSearchBook(scanner, manager, sess)
		case "borrow":
			handleBorrow(scanner, manager, sess)
		case "return":
			handleReturn(scanner, manager, sess)
		case "loans":
			handleLoans(manager, sess)
		case "history":
			handleHistory(manager, sess)
		case "undo":
			handleUndo(scanner, manager, sess)
		case "users":
			handleUsers(scanner, manager, sess)
		case "settings":
			handleSettings(scanner, manager, sess)
		case "backup":
			handleBackup(scanner, manager, sess)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type 'help' for the command list.")
		}
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  Students:    add student, delete student, list students, search student")
	fmt.Println("  Books:       add book, delete book, list books, search book")
	fmt.Println("  Circulation: borrow, return, loans, history")
	fmt.Println("  Admin:       undo, users, settings, backup")
	fmt.Println("  System:      help, exit")
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func readLine(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// ------------------ Login ------------------

func login(sc *bufio.Scanner, mgr *library.Manager) (*session, error) {
	for {
		choice, ok := readLine(sc, "[l]ogin school, [r]egister school, or [q]uit: ")
		if !ok {
			return nil, nil
		}

		switch choice {
		case "l", "login":
			school := schoolLogin(sc, mgr)
			if school == nil {
				continue
			}
			user := userLogin(sc, mgr, school)
			if user == nil {
				continue
			}
			return &session{school: school, user: user}, nil
		case "r", "register":
			registerSchool(sc, mgr)
		case "q", "quit":
			return nil, nil
		default:
			fmt.Println("Enter l, r, or q.")
		}
	}
}

func registerSchool(sc *bufio.Scanner, mgr *library.Manager) {
	name, ok := readLine(sc, "School name: ")
	if !ok || name == "" {
		return
	}
	password, err := readPassword("School password: ")
	if err != nil || password == "" {
		fmt.Println("Password required.")
		return
	}

	school, err := mgr.RegisterSchool(library.RegisterSchoolParams{
		Name:            name,
		Password:        password,
		FinePerDay:      library.DefaultFinePerDay,
		DefaultLoanDays: library.DefaultLoanDays,
	})
	if errors.Is(err, library.ErrDuplicate) {
		fmt.Println("School already exists.")
		return
	}
	if err != nil {
		fmt.Printf("Registration failed: %v\n", err)
		return
	}
	fmt.Printf("School '%s' registered. Default admin: username 'admin', password 'admin'.\n", school.Name)
}

func schoolLogin(sc *bufio.Scanner, mgr *library.Manager) *library.School {
	name, ok := readLine(sc, "School name: ")
	if !ok {
		return nil
	}
	password, err := readPassword("School password: ")
	if err != nil {
		return nil
	}
	school, err := mgr.SchoolLogin(name, password)
	if errors.Is(err, library.ErrInvalidCredentials) {
		fmt.Println("Wrong school credentials.")
		return nil
	}
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return nil
	}
	return school
}

func userLogin(sc *bufio.Scanner, mgr *library.Manager, school *library.School) *library.User {
	username, ok := readLine(sc, "Username: ")
	if !ok {
		return nil
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return nil
	}
	user, err := mgr.UserLogin(school.ID, username, password)
	if errors.Is(err, library.ErrInvalidCredentials) {
		fmt.Println("Invalid user credentials.")
		return nil
	}
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return nil
	}
	return user
}

// ------------------ Students ------------------

func handleAddStudent(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	draft, _ := mgr.LoadDraft("student")

	adm, ok := readLine(sc, prompt("Admission no", draft["admission_no"]))
	if !ok {
		return
	}
	if adm == "" {
		adm = draft["admission_no"]
	}
	name, ok := readLine(sc, prompt("Name", draft["name"]))
	if !ok {
		return
	}
	if name == "" {
		name = draft["name"]
	}

	classes, _ := mgr.UniqueClasses(sess.school.ID)
	if len(classes) > 0 {
		fmt.Printf("Known classes: %s\n", strings.Join(classes, ", "))
	}
	class, ok := readLine(sc, prompt("Class", draft["class"]))
	if !ok {
		return
	}
	if class == "" {
		class = draft["class"]
	}

	_, err := mgr.AddStudent(sess.school.ID, library.AddStudentParams{
		AdmissionNo: adm, Name: name, Class: class,
	})
	if errors.Is(err, library.ErrDuplicate) {
		fmt.Println("Student already exists (duplicate admission number).")
		saveDraft(mgr, "student", map[string]string{"admission_no": adm, "name": name, "class": class})
		return
	}
	if err != nil {
		fmt.Printf("Error adding student: %v\n", err)
		saveDraft(mgr, "student", map[string]string{"admission_no": adm, "name": name, "class": class})
		return
	}
	_ = mgr.ClearDraft("student")
	fmt.Printf("Student %s added.\n", name)
}

func handleDeleteStudent(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	adm, ok := readLine(sc, "Admission no: ")
	if !ok || adm == "" {
		return
	}
	confirm, ok := readLine(sc, fmt.Sprintf("Delete student %s? [y/N]: ", adm))
	if !ok || !strings.EqualFold(confirm, "y") {
		return
	}
	err := mgr.DeleteStudent(sess.user.Role, sess.school.ID, adm)
	switch {
	case errors.Is(err, library.ErrPermissionDenied):
		fmt.Println("Permission denied.")
	case errors.Is(err, library.ErrHasActiveLoans):
		fmt.Println("Cannot delete: student has active loans.")
	case err != nil:
		fmt.Printf("Error deleting student: %v\n", err)
	default:
		fmt.Println("Student deleted. Use 'undo' to restore.")
	}
}

func handleListStudents(mgr *library.Manager, sess *session) {
	students, err := mgr.ListStudents(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(students) == 0 {
		fmt.Println("No students registered.")
		return
	}
	fmt.Printf("%-15s %-30s %-10s\n", "Admission No", "Name", "Class")
	fmt.Println(strings.Repeat("-", 60))
	for _, st := range students {
		fmt.Printf("%-15s %-30s %-10s\n", st.AdmissionNo, truncateString(st.Name, 30), st.Class)
	}
}

func handleSearchStudent(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	term, ok := readLine(sc, "Search (admission no or name): ")
	if !ok || term == "" {
		return
	}
	students, err := mgr.SearchStudents(sess.school.ID, term)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(students) == 0 {
		fmt.Printf("No students found matching '%s'.\n", term)
		return
	}

	school, err := mgr.GetSchoolByID(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	now := time.Now().UTC()

	for _, st := range students {
		fmt.Printf("\n%s (%s), class %s\n", st.Name, st.AdmissionNo, st.Class)

		active, err := mgr.StudentActiveLoans(sess.school.ID, st.ID)
		if err != nil {
			fmt.Printf("  Error loading loans: %v\n", err)
			continue
		}
		if len(active) == 0 {
			fmt.Println("  No active loans.")
		}
		var totalFine int64
		for _, l := range active {
			daysLate := int(now.Truncate(24*time.Hour).Sub(l.DueDate.Truncate(24*time.Hour)).Hours() / 24)
			if daysLate > 0 {
				fine := int64(daysLate) * school.FinePerDay
				totalFine += fine
				fmt.Printf("  - %s (%s): OVERDUE by %d day(s), fine %d\n", l.Title, l.Barcode, daysLate, fine)
			} else {
				fmt.Printf("  - %s (%s): due in %d day(s)\n", l.Title, l.Barcode, -daysLate)
			}
		}
		if totalFine > 0 {
			fmt.Printf("  Total fines due: %d\n", totalFine)
		}

		history, err := mgr.StudentLoanHistory(sess.school.ID, st.ID)
		if err == nil {
			fmt.Printf("  Total history: %d loan(s)\n", len(history))
		}
	}
}

// ------------------ Books ------------------

func handleAddBook(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	draft, _ := mgr.LoadDraft("book")

	title, ok := readLine(sc, prompt("Title", draft["title"]))
	if !ok {
		return
	}
	if title == "" {
		title = draft["title"]
	}

	authors, _ := mgr.UniqueAuthors(sess.school.ID)
	if len(authors) > 0 {
		fmt.Printf("Known authors: %s\n", strings.Join(authors, ", "))
	}
	author, ok := readLine(sc, prompt("Author", draft["author"]))
	if !ok {
		return
	}
	if author == "" {
		author = draft["author"]
	}

	barcode, ok := readLine(sc, prompt("Barcode", draft["barcode"]))
	if !ok {
		return
	}
	if barcode == "" {
		barcode = draft["barcode"]
	}

	condition, ok := readLine(sc, fmt.Sprintf("Condition %v [Good]: ", library.BookConditions))
	if !ok {
		return
	}
	nonCirc, ok := readLine(sc, "Non-circulating (reference only)? [y/N]: ")
	if !ok {
		return
	}

	_, err := mgr.AddBook(sess.user.Role, sess.school.ID, library.AddBookParams{
		Title:          title,
		Author:         author,
		Barcode:        barcode,
		NonCirculating: strings.EqualFold(nonCirc, "y"),
		Condition:      condition,
	})
	switch {
	case errors.Is(err, library.ErrPermissionDenied):
		fmt.Println("Permission denied.")
	case errors.Is(err, library.ErrDuplicate):
		fmt.Println("Book already exists (duplicate barcode).")
		saveDraft(mgr, "book", map[string]string{"title": title, "author": author, "barcode": barcode})
	case err != nil:
		fmt.Printf("Error adding book: %v\n", err)
		saveDraft(mgr, "book", map[string]string{"title": title, "author": author, "barcode": barcode})
	default:
		_ = mgr.ClearDraft("book")
		fmt.Printf("Book '%s' added.\n", title)
	}
}

func handleDeleteBook(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	barcode, ok := readLine(sc, "Barcode: ")
	if !ok || barcode == "" {
		return
	}
	confirm, ok := readLine(sc, fmt.Sprintf("Delete book %s? [y/N]: ", barcode))
	if !ok || !strings.EqualFold(confirm, "y") {
		return
	}
	err := mgr.DeleteBook(sess.user.Role, sess.school.ID, barcode)
	switch {
	case errors.Is(err, library.ErrPermissionDenied):
		fmt.Println("Only Admin can delete books.")
	case errors.Is(err, library.ErrHasActiveLoans):
		fmt.Println("Cannot delete: book is on loan.")
	case err != nil:
		fmt.Printf("Error deleting book: %v\n", err)
	default:
		fmt.Println("Book deleted. Use 'undo' to restore.")
	}
}

func handleListBooks(mgr *library.Manager, sess *session) {
	books, err := mgr.ListBooks(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-30s %-25s %-15s %-10s %s\n", "Title", "Author", "Barcode", "Condition", "Circulates")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		circ := "Yes"
		if b.NonCirculating {
			circ = "No"
		}
		fmt.Printf("%-30s %-25s %-15s %-10s %s\n",
			truncateString(b.Title, 30), truncateString(b.Author, 25), b.Barcode, b.Condition, circ)
	}
}

func handleSearchBook(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	term, ok := readLine(sc, "Search (title or barcode): ")
	if !ok || term == "" {
		return
	}
	books, err := mgr.SearchBooks(sess.school.ID, term)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Printf("No books found matching '%s'.\n", term)
		return
	}
	fmt.Printf("%-30s %-25s %-15s %-10s %s\n", "Title", "Author", "Barcode", "Condition", "Circulates")
	fmt.Println(strings.Repeat("-", 95))
	for _, b := range books {
		circ := "Yes"
		if b.NonCirculating {
			circ = "No"
		}
		fmt.Printf("%-30s %-25s %-15s %-10s %s\n",
			truncateString(b.Title, 30), truncateString(b.Author, 25), b.Barcode, b.Condition, circ)
	}
}

// ------------------ Circulation ------------------

func handleBorrow(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	adm, ok := readLine(sc, "Student admission no: ")
	if !ok || adm == "" {
		return
	}
	barcode, ok := readLine(sc, "Book barcode: ")
	if !ok || barcode == "" {
		return
	}
	daysStr, ok := readLine(sc, fmt.Sprintf("Loan days [default %d]: ", sess.school.DefaultLoanDays))
	if !ok {
		return
	}
	days := 0
	if daysStr != "" {
		d, err := strconv.Atoi(daysStr)
		if err != nil || d < 1 {
			fmt.Printf("Invalid loan days: %s\n", daysStr)
			return
		}
		days = d
	}

	loan, err := mgr.BorrowByBarcode(sess.school.ID, adm, barcode, days)
	switch {
	case errors.Is(err, library.ErrNotFound):
		fmt.Printf("Not found: %v\n", err)
	case errors.Is(err, library.ErrNonCirculating):
		fmt.Println("Book is reference-only and cannot be borrowed.")
	case errors.Is(err, library.ErrAlreadyBorrowed):
		fmt.Println("Book already borrowed.")
	case err != nil:
		fmt.Printf("Error recording loan: %v\n", err)
	default:
		fmt.Printf("Borrow recorded. Due %s.\n", loan.DueDate.Format("2006-01-02"))
	}
}

func handleReturn(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	barcode, ok := readLine(sc, "Book barcode: ")
	if !ok || barcode == "" {
		return
	}
	res, err := mgr.ReturnByBarcode(sess.school.ID, barcode)
	switch {
	case errors.Is(err, library.ErrNotFound):
		fmt.Printf("Not found: %v\n", err)
	case errors.Is(err, library.ErrNoActiveLoan):
		fmt.Println("No active loan for this book.")
	case err != nil:
		fmt.Printf("Error recording return: %v\n", err)
	case res.Fine > 0:
		fmt.Printf("Returned. Fine due: %d (days late: %d)\n", res.Fine, res.DaysLate)
	default:
		fmt.Println("Returned. No fine.")
	}
}

func handleLoans(mgr *library.Manager, sess *session) {
	loans, err := mgr.CurrentLoans(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(loans) == 0 {
		fmt.Println("No active loans.")
		return
	}
	fmt.Printf("%-15s %-30s %-15s %-12s %-12s %s\n", "Barcode", "Title", "Student", "Borrowed", "Due", "Condition")
	fmt.Println(strings.Repeat("-", 105))
	for _, l := range loans {
		fmt.Printf("%-15s %-30s %-15s %-12s %-12s %s\n",
			l.Barcode, truncateString(l.Title, 30), l.AdmissionNo,
			l.BorrowedAt.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), l.Condition)
	}
}

func handleHistory(mgr *library.Manager, sess *session) {
	loans, err := mgr.LoanHistory(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(loans) == 0 {
		fmt.Println("No loans recorded yet.")
		return
	}
	fmt.Printf("%-15s %-30s %-15s %-12s %-12s %s\n", "Barcode", "Title", "Student", "Borrowed", "Due", "Returned")
	fmt.Println(strings.Repeat("-", 105))
	for _, l := range loans {
		returned := ""
		if l.ReturnedAt != nil {
			returned = l.ReturnedAt.Format("2006-01-02")
		}
		fmt.Printf("%-15s %-30s %-15s %-12s %-12s %s\n",
			l.Barcode, truncateString(l.Title, 30), l.AdmissionNo,
			l.BorrowedAt.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), returned)
	}
}

// ------------------ Undo ------------------

func handleUndo(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	entries, err := mgr.RecentDeletions(sess.school.ID, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No recent deletions.")
		return
	}

	fmt.Printf("%-5s %-10s %-40s %s\n", "ID", "Type", "Record", "Deleted At")
	fmt.Println(strings.Repeat("-", 85))
	for _, e := range entries {
		fmt.Printf("%-5d %-10s %-40s %s\n",
			e.ID, e.Table, truncateString(string(e.Record), 40), e.DeletedAt.Format("2006-01-02 15:04:05"))
	}

	idStr, ok := readLine(sc, "Entry ID to undo (Enter to cancel): ")
	if !ok || idStr == "" {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		fmt.Printf("Invalid entry ID: %s\n", idStr)
		return
	}

	err = mgr.Undo(sess.school.ID, id)
	switch {
	case errors.Is(err, library.ErrNotFound):
		fmt.Println("Undo record not found.")
	case errors.Is(err, library.ErrDuplicate):
		fmt.Println("Cannot restore: the key is in use again. The entry is kept for retry.")
	case err != nil:
		fmt.Printf("Failed to restore: %v\n", err)
	default:
		fmt.Println("Record restored.")
	}
}

// ------------------ Users ------------------

func handleUsers(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	users, err := mgr.ListUsers(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%-20s %s\n", "Username", "Role")
	fmt.Println(strings.Repeat("-", 35))
	for _, u := range users {
		fmt.Printf("%-20s %s\n", u.Username, u.Role)
	}

	action, ok := readLine(sc, "[a]dd user, [d]elete user, or Enter to go back: ")
	if !ok {
		return
	}
	switch action {
	case "a", "add":
		username, ok := readLine(sc, "Username: ")
		if !ok || username == "" {
			return
		}
		password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
		if err != nil || password == "" {
			fmt.Println("Password required.")
			return
		}
		roleStr, ok := readLine(sc, "Role [Admin/Librarian/Assistant]: ")
		if !ok {
			return
		}
		role := library.Role(roleStr)
		if role != library.RoleAdmin && role != library.RoleLibrarian && role != library.RoleAssistant {
			fmt.Printf("Unknown role: %s\n", roleStr)
			return
		}
		_, err = mgr.CreateUser(sess.user.Role, sess.school.ID, username, password, role)
		switch {
		case errors.Is(err, library.ErrPermissionDenied):
			fmt.Println("Only Admin can manage users.")
		case errors.Is(err, library.ErrDuplicate):
			fmt.Println("User already exists.")
		case err != nil:
			fmt.Printf("Error creating user: %v\n", err)
		default:
			fmt.Printf("User %s created with role %s.\n", username, role)
		}
	case "d", "delete":
		username, ok := readLine(sc, "Username to delete: ")
		if !ok || username == "" {
			return
		}
		if err := mgr.DeleteUser(sess.user.Role, sess.school.ID, username); err != nil {
			if errors.Is(err, library.ErrPermissionDenied) {
				fmt.Println("Only Admin can manage users.")
			} else {
				fmt.Printf("Error deleting user: %v\n", err)
			}
			return
		}
		fmt.Printf("User %s deleted.\n", username)
	}
}

// ------------------ Settings ------------------

func handleSettings(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	school, err := mgr.GetSchoolByID(sess.school.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	sess.school = school

	fmt.Printf("Fine per day: %d\nDefault loan days: %d\n", school.FinePerDay, school.DefaultLoanDays)
	fmt.Printf("License: %s\n", mgr.LicenseStatus(school.Name))

	action, ok := readLine(sc, "[u]pdate settings, [a]ctivate license, or Enter to go back: ")
	if !ok {
		return
	}
	switch action {
	case "u", "update":
		fineStr, ok := readLine(sc, fmt.Sprintf("Fine per day [%d]: ", school.FinePerDay))
		if !ok {
			return
		}
		daysStr, ok := readLine(sc, fmt.Sprintf("Default loan days [%d]: ", school.DefaultLoanDays))
		if !ok {
			return
		}
		fine := school.FinePerDay
		days := school.DefaultLoanDays
		if fineStr != "" {
			f, err := strconv.ParseInt(fineStr, 10, 64)
			if err != nil {
				fmt.Printf("Invalid fine: %s\n", fineStr)
				return
			}
			fine = f
		}
		if daysStr != "" {
			d, err := strconv.Atoi(daysStr)
			if err != nil {
				fmt.Printf("Invalid loan days: %s\n", daysStr)
				return
			}
			days = d
		}
		err = mgr.UpdateSettings(sess.user.Role, sess.school.ID, fine, days)
		switch {
		case errors.Is(err, library.ErrPermissionDenied):
			fmt.Println("Only Admin can change settings.")
		case err != nil:
			fmt.Printf("Error updating settings: %v\n", err)
		default:
			fmt.Println("Settings updated.")
		}
	case "a", "activate":
		path, ok := readLine(sc, "Path to license JSON file: ")
		if !ok || path == "" {
			return
		}
		if err := mgr.ActivateLicense(filepath.Clean(path), school.Name); err != nil {
			fmt.Printf("Activation failed: %v\n", err)
			return
		}
		fmt.Println("License activated.")
	}
}

// ------------------ Backup ------------------

func handleBackup(sc *bufio.Scanner, mgr *library.Manager, sess *session) {
	action, ok := readLine(sc, "[e]xport or [r]estore: ")
	if !ok {
		return
	}
	switch action {
	case "e", "export":
		path, ok := readLine(sc, "Export to path: ")
		if !ok || path == "" {
			return
		}
		if err := mgr.ExportBackup(filepath.Clean(path)); err != nil {
			fmt.Printf("Export failed: %v\n", err)
			return
		}
		fmt.Println("Database exported.")
	case "r", "restore":
		path, ok := readLine(sc, "Restore from path: ")
		if !ok || path == "" {
			return
		}
		confirm, ok := readLine(sc, "This will replace the current database. Continue? [y/N]: ")
		if !ok || !strings.EqualFold(confirm, "y") {
			return
		}
		err := mgr.RestoreBackup(sess.user.Role, filepath.Clean(path))
		switch {
		case errors.Is(err, library.ErrPermissionDenied):
			fmt.Println("Only Admin can restore a backup.")
		case err != nil:
			fmt.Printf("Restore failed: %v\n", err)
		default:
			fmt.Println("Database restored. Please log in again after restart.")
		}
	}
}

// ------------------ Helpers ------------------

func prompt(label, draft string) string {
	if draft != "" {
		return fmt.Sprintf("%s [draft: %s]: ", label, draft)
	}
	return label + ": "
}

func saveDraft(mgr *library.Manager, category string, fields map[string]string) {
	if err := mgr.SaveDraft(category, fields); err != nil {
		log.Printf("save %s draft: %v", category, err)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
