package pysec_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/pysec"
)

var _ = Describe("Helpers", func() {
	Context("when listing source files", func() {
		var dir string
		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "app.py"), []byte("x = 1\n"), 0o600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs\n"), 0o600)).To(Succeed())
			nested := filepath.Join(dir, "views")
			Expect(os.Mkdir(nested, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(nested, "index.py"), []byte("y = 2\n"), 0o600)).To(Succeed())
		})

		It("should list only the direct Python files of a directory", func() {
			files, err := pysec.SourceFiles(dir, nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(Equal([]string{filepath.Join(dir, "app.py")}))
		})

		It("should walk recursively with an ellipsis", func() {
			files, err := pysec.SourceFiles(dir+"/...", nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(Equal([]string{
				filepath.Join(dir, "app.py"),
				filepath.Join(dir, "views", "index.py"),
			}))
		})

		It("should exclude folders", func() {
			files, err := pysec.SourceFiles(dir+"/...", pysec.ExcludedDirsRegExp([]string{"views"}))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(Equal([]string{filepath.Join(dir, "app.py")}))
		})

		It("should skip hidden folders", func() {
			hidden := filepath.Join(dir, ".venv")
			Expect(os.Mkdir(hidden, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(hidden, "site.py"), []byte("z = 3\n"), 0o600)).To(Succeed())
			files, err := pysec.SourceFiles(dir+"/...", nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(HaveLen(2))
		})

		It("should accept a single file", func() {
			file := filepath.Join(dir, "app.py")
			files, err := pysec.SourceFiles(file, nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(Equal([]string{file}))
		})

		It("should be empty when folder does not exist", func() {
			files, err := pysec.SourceFiles(filepath.Join(dir, "missing")+"/...", nil)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(files).Should(BeEmpty())
		})
	})

	Context("when getting the root path", func() {
		It("should return the absolute path from relative path", func() {
			cwd, err := os.Getwd()
			Expect(err).ShouldNot(HaveOccurred())
			root, err := pysec.RootPath("test")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(root).Should(Equal(filepath.Join(cwd, "test")))
		})

		It("should return the absolute path from ellipsis path", func() {
			cwd, err := os.Getwd()
			Expect(err).ShouldNot(HaveOccurred())
			root, err := pysec.RootPath(filepath.Join("test", "..."))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(root).Should(Equal(filepath.Join(cwd, "test")))
		})
	})

	Context("when excluding the dirs", func() {
		It("should create a proper regexp", func() {
			r := pysec.ExcludedDirsRegExp([]string{"test"})
			Expect(r).Should(HaveLen(1))
			Expect(r[0].MatchString("/home/src/project/test/pkg")).Should(BeTrue())
			Expect(r[0].MatchString("/home/src/project/vendor/pkg")).Should(BeFalse())
		})

		It("should create no regexp when dir list is empty", func() {
			Expect(pysec.ExcludedDirsRegExp(nil)).Should(BeEmpty())
			Expect(pysec.ExcludedDirsRegExp([]string{})).Should(BeEmpty())
		})
	})
})
